// Package errs defines the shared error vocabulary for the import
// pipeline. Callers match on these types with errors.As to decide
// between user-facing validation summaries and generic failure output.
package errs

import "fmt"

// ImportError reports a failure to read or parse an input file.
type ImportError struct {
	Op   string
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ValidationError reports rule violations found during pre-flight
// validation. It is always raised before any store mutation.
type ValidationError struct {
	Path    string
	Summary string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %d error(s)", e.Path, len(e.Errors))
}

// DatabaseError reports a transactional failure. The transaction has
// been rolled back by the time the caller sees this error.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ConfigError reports an invalid or unreadable configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
