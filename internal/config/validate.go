package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidNestingDepth indicates a negative archive nesting limit
	ErrInvalidNestingDepth = errors.New("invalid max nesting depth")

	// ErrEmptyClasspathEntry indicates a blank classpath root
	ErrEmptyClasspathEntry = errors.New("empty classpath entry")

	// ErrInvalidKeepScans indicates a negative scan retention count
	ErrInvalidKeepScans = errors.New("invalid keep_scans")

	// ErrInvalidDebounce indicates a non-positive watch debounce
	ErrInvalidDebounce = errors.New("invalid debounce")

	// ErrInvalidPattern indicates a watch pattern that does not compile
	ErrInvalidPattern = errors.New("invalid watch pattern")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validateCatalog(&cfg.Catalog); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if cfg.MaxNestingDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max_nesting_depth cannot be negative, got %d", ErrInvalidNestingDepth, cfg.MaxNestingDepth))
	}
	for i, root := range cfg.Classpath {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, fmt.Errorf("%w: classpath[%d] is blank", ErrEmptyClasspathEntry, i))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateCatalog(cfg *CatalogConfig) error {
	if cfg.KeepScans < 0 {
		return fmt.Errorf("%w: keep_scans cannot be negative, got %d", ErrInvalidKeepScans, cfg.KeepScans)
	}
	return nil
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error

	if cfg.DebounceMs <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.DebounceMs))
	}
	for _, pattern := range cfg.Patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every joined sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
