package classpath

const (
	// SeverityWarning indicates a recoverable scan anomaly.
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates an informational note (e.g. a skipped directory).
	SeverityInfo Severity = "info"
)

const (
	CodeNestedArchiveUnreadable = "nested_archive_unreadable"
	CodeDirectoryUnreadable     = "directory_unreadable"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal anomaly recorded during a scan. The scan
	// continues after recording it.
	Diagnostic struct {
		Severity Severity
		// Code is a machine-readable identifier (e.g. "nested_archive_unreadable").
		Code    string
		Message string
		// Path locates the anomaly; nested archive paths are joined with "!/".
		Path  string
		Cause error
	}
)
