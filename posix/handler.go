package posix

import "os"

// Handler receives diagnostics from a POSIX value and supplies the working
// directory relative paths are resolved against. Implementations must be
// safe for concurrent use.
type Handler interface {
	// Warn reports a recoverable anomaly, e.g. a fallback query.
	Warn(format string, args ...any)
	// Error reports a failed operation. The caller still gets the
	// corresponding return code.
	Error(kind Kind, msg string)
	IsVerbose() bool
	Getwd() (string, error)
}

// DummyHandler discards all diagnostics and uses the working directory of
// the process.
type DummyHandler struct{}

// statically ensure that DummyHandler implements Handler.
var _ Handler = DummyHandler{}

func (DummyHandler) Warn(string, ...any)    {}
func (DummyHandler) Error(Kind, string)     {}
func (DummyHandler) IsVerbose() bool        { return false }
func (DummyHandler) Getwd() (string, error) { return os.Getwd() }
