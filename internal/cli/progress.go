package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/mvp-joe/classpath-scanner/internal/classpath"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter shows a spinner while a scan runs. The number of
// artifacts is unknown upfront, so it counts instead of filling a bar.
type CLIProgressReporter struct {
	quiet     bool
	out       io.Writer
	bar       *progressbar.ProgressBar
	startTime time.Time
	elements  int
	artifacts int
}

// NewCLIProgressReporter creates a reporter drawing to out.
func NewCLIProgressReporter(quiet bool, out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnElementStart(element classpath.Element) {
	if c.quiet {
		return
	}
	if c.bar == nil {
		c.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("classes/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	c.bar.Describe(fmt.Sprintf("Scanning %s", filepath.Base(element.Path)))
}

func (c *CLIProgressReporter) OnArtifact(classpath.Artifact) {
	c.artifacts++
	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnElementDone(classpath.Element) {
	c.elements++
}

// Artifacts returns the number of artifacts delivered so far.
func (c *CLIProgressReporter) Artifacts() int { return c.artifacts }

// Elements returns the number of elements walked so far.
func (c *CLIProgressReporter) Elements() int { return c.elements }

// Elapsed returns the time since the reporter was created.
func (c *CLIProgressReporter) Elapsed() time.Duration { return time.Since(c.startTime) }

// Done clears the spinner.
func (c *CLIProgressReporter) Done() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
