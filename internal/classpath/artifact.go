package classpath

import (
	"io"
	"path/filepath"
)

// Artifact is one discovered class artifact. The embedded reader is owned by
// the scanner and is only valid during the Consumer.Process call that
// receives it; consumers must read everything they need before returning.
type Artifact struct {
	// Element is the classpath element the artifact was found in. For an
	// entry of a nested archive it is the nested archive's location.
	Element string
	// Path is element-relative, slash separated. Empty when the element
	// itself is the artifact.
	Path string
	// InArchive reports whether Path names an archive entry.
	InArchive bool

	io.Reader
}

// Location returns a printable path for the artifact. Archive entries are
// joined to their archive with "!/".
func (a Artifact) Location() string {
	switch {
	case a.Path == "":
		return a.Element
	case a.InArchive:
		return a.Element + nestedSeparator + a.Path
	default:
		return filepath.Join(a.Element, filepath.FromSlash(a.Path))
	}
}

// Consumer receives discovered artifacts and the end-of-scan signal.
type Consumer interface {
	// Process is called once per discovered, matching artifact. A non-nil
	// error aborts the scan.
	Process(artifact Artifact) error

	// Finish is called exactly once after every classpath element has been
	// visited. It is not called when the scan fails.
	Finish() error
}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields are no-ops.
type ConsumerFuncs struct {
	ProcessFunc func(Artifact) error
	FinishFunc  func() error
}

func (c ConsumerFuncs) Process(artifact Artifact) error {
	if c.ProcessFunc == nil {
		return nil
	}
	return c.ProcessFunc(artifact)
}

func (c ConsumerFuncs) Finish() error {
	if c.FinishFunc == nil {
		return nil
	}
	return c.FinishFunc()
}
