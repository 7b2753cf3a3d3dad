// Package classpath discovers compiled class artifacts across classpath
// elements and streams their bytes to a Consumer.
//
// A classpath element is a directory, an archive (jar or zip) or a bare file.
// Directories are walked recursively and every .class file is delivered.
// Archives are iterated entry by entry; entries whose path starts with one of
// the scan prefixes and ends in .class are delivered, and entries that are
// themselves archives are decoded as forward-only streams and scanned the
// same way, to any depth up to the configured limit.
//
// Scanning is synchronous and depth-first. Every stream handed to the
// consumer is closed before the scanner moves on.
package classpath

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultMaxNestingDepth bounds how many archives may be nested inside a
// top-level archive.
const DefaultMaxNestingDepth = 32

// Scanner walks classpath elements. A Scanner is not safe for concurrent
// use; run one Scan at a time.
type Scanner struct {
	resolver Resolver
	logger   *log.Logger
	maxDepth int
	progress Progress

	diagnostics []Diagnostic
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithResolver sets the collaborator that turns prefixes into elements.
func WithResolver(r Resolver) Option {
	return func(s *Scanner) { s.resolver = r }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithMaxNestingDepth limits archive nesting. Zero disables the limit.
func WithMaxNestingDepth(depth int) Option {
	return func(s *Scanner) { s.maxDepth = depth }
}

// WithProgress registers a progress observer.
func WithProgress(p Progress) Option {
	return func(s *Scanner) { s.progress = p }
}

// New creates a Scanner. Without WithResolver it resolves prefixes as
// filesystem paths relative to the working directory.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		resolver: &FSResolver{},
		logger:   log.New(io.Discard),
		maxDepth: DefaultMaxNestingDepth,
		progress: NoOpProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan resolves prefixes into unique classpath elements, delivers every
// matching class artifact to consumer and then calls consumer.Finish once.
//
// The prefixes are used twice: the resolver uses them to select elements,
// and the entry filter uses them to select paths inside archives.
//
// The first I/O failure, or the first error returned by consumer.Process,
// aborts the scan and is returned as a *ScanError. Finish is not called in
// that case.
func (s *Scanner) Scan(prefixes []string, consumer Consumer) error {
	s.diagnostics = nil

	elements, err := s.resolver.ResolveUnique(prefixes)
	if err != nil {
		return fatal("resolve", strings.Join(prefixes, string(os.PathListSeparator)), err)
	}
	s.logger.Debug("Resolved classpath", "prefixes", len(prefixes), "elements", len(elements))

	w := &walker{
		filter:      NewEntryFilter(prefixes),
		maxDepth:    s.maxDepth,
		logger:      s.logger,
		report:      s.record,
		visitedDirs: make(map[string]struct{}),
		visit: func(a Artifact) error {
			s.progress.OnArtifact(a)
			if err := consumer.Process(a); err != nil {
				return fatal("process", a.Location(), err)
			}
			return nil
		},
	}

	for _, element := range elements {
		s.progress.OnElementStart(element)
		if err := s.scanElement(w, element); err != nil {
			return err
		}
		s.progress.OnElementDone(element)
	}

	if err := consumer.Finish(); err != nil {
		return fmt.Errorf("failed to finish scan: %w", err)
	}
	return nil
}

// Diagnostics returns the non-fatal anomalies recorded by the last Scan.
func (s *Scanner) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), s.diagnostics...)
}

func (s *Scanner) scanElement(w *walker, element Element) error {
	info, err := os.Stat(element.Path)
	if err != nil {
		// The element disappeared between resolution and scanning.
		s.logger.Debug("Skipping missing classpath element", "path", element.Path, "error", err)
		return nil
	}

	switch {
	case info.IsDir():
		s.logger.Debug("Scanning directory", "path", element.Path)
		return w.walkDirectory(element.Path)
	case !info.Mode().IsRegular():
		return nil
	case isArchiveFileName(element.Path):
		return w.walkArchive(element.Path)
	default:
		// A bare file given as a classpath element is delivered as is.
		return w.deliverFile(element.Path, element.Path, "")
	}
}

func (s *Scanner) record(d Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
	switch d.Severity {
	case SeverityWarning:
		s.logger.Warn(d.Message, "code", d.Code, "path", d.Path)
	default:
		s.logger.Debug(d.Message, "code", d.Code, "path", d.Path)
	}
}
