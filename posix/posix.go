// Package posix emulates POSIX file metadata and mutation calls on top of
// the Win32 file API.
//
// Paths may use drive letters, UNC shares (including administrative shares
// like \\host\C$) and may exceed MAX_PATH; they are normalized before every
// call. Operations return 0 or a negated errno value, see Kind.
package posix

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	"github.com/restic/winposix/internal/fs"
	"github.com/restic/winposix/internal/winpath"
)

// Kind classifies a failure. Kind.Code is the return code of the failed
// operation.
type Kind = errors.Kind

// Error kinds.
const (
	IoError         = errors.IoError
	NotFound        = errors.NotFound
	AccessDenied    = errors.AccessDenied
	InvalidArgument = errors.InvalidArgument
	Unsupported     = errors.Unsupported
)

type (
	// Timespec is a time with nanosecond resolution, as used by utimensat.
	Timespec = filetime.Timespec
	// Timeval is a time with microsecond resolution, as used by utimes.
	Timeval = filetime.Timeval
)

// Arguments of Utimensat.
const (
	UTIME_NOW  = filetime.UtimeNow
	UTIME_OMIT = filetime.UtimeOmit

	AT_FDCWD            = -100
	AT_SYMLINK_NOFOLLOW = 0x100
)

// POSIX implements the emulated calls. It is safe for concurrent use.
type POSIX struct {
	handler Handler
	sys     fs.Win32
	now     func() time.Time

	lastErr atomic.Pointer[lastError]
}

type lastError struct {
	err error
}

// Option configures a POSIX value.
type Option func(*POSIX)

// WithSys replaces the Win32 layer, e.g. with an fs.MemFS.
func WithSys(sys fs.Win32) Option {
	return func(p *POSIX) {
		p.sys = sys
	}
}

// WithClock sets the clock used for "now" timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *POSIX) {
		p.now = now
	}
}

// New returns a POSIX value reporting to h. If h is nil, DummyHandler is
// used. Without WithSys the Win32 API of the running system is used, which
// fails with Unsupported on other platforms.
func New(h Handler, opts ...Option) *POSIX {
	if h == nil {
		h = DummyHandler{}
	}
	p := &POSIX{
		handler: h,
		sys:     fs.Local{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// KindOf returns the kind for a return code. ok is false for codes not
// returned by this package.
func KindOf(code int) (kind Kind, ok bool) {
	return errors.KindFromCode(code)
}

// ErrorKind classifies err.
func ErrorKind(err error) Kind {
	return errors.KindOf(err)
}

// LastError returns the error of the most recent failed operation. With
// concurrent callers the last writer wins, use the return codes to decide
// what happened.
func (p *POSIX) LastError() error {
	if le := p.lastErr.Load(); le != nil {
		return le.err
	}
	return nil
}

// fail records err and returns its code.
func (p *POSIX) fail(op, name string, err error) int {
	kind := errors.KindOf(err)
	debug.Log("%v %v failed (%v): %+v", op, name, kind, err)

	p.lastErr.Store(&lastError{err: err})
	p.handler.Error(kind, fmt.Sprintf("%v %v: %v", op, name, err))
	return kind.Code()
}

// resolve normalizes name, relative paths are resolved against the working
// directory of the handler.
func (p *POSIX) resolve(name string) (winpath.Path, error) {
	path, err := winpath.Parse(name)
	if err != nil {
		return winpath.Path{}, err
	}
	if path.IsAbs() {
		return path, nil
	}

	cwd, err := p.handler.Getwd()
	if err != nil {
		return winpath.Path{}, errors.Wrap(err, "Getwd")
	}
	return winpath.Resolve(cwd, name)
}

// closeHandle closes h, failures are only reported as a warning.
func (p *POSIX) closeHandle(h fs.Handle, name string) {
	if err := h.Close(); err != nil {
		debug.Log("close %v: %v", name, err)
		p.handler.Warn("closing handle for %v failed: %v", name, err)
	}
}

// AllocateStat returns an empty record for StatInto and FindFirstFile.
func (p *POSIX) AllocateStat() *FileStat {
	return newFileStat()
}

// Stat returns the metadata of name, following symlinks. On failure the
// returned record is invalid and carries the error, which is also returned.
func (p *POSIX) Stat(name string) (*FileStat, error) {
	st := newFileStat()
	if code := p.StatInto(name, st); code != 0 {
		return st, st.Err()
	}
	return st, nil
}

// StatInto fills out with the metadata of name and returns 0, or a negative
// code after resetting out.
func (p *POSIX) StatInto(name string, out *FileStat) int {
	return p.statInto("stat", name, out, true)
}

// Lstat is like Stat, but describes a symlink itself instead of its target.
func (p *POSIX) Lstat(name string) (*FileStat, error) {
	st := newFileStat()
	if code := p.LstatInto(name, st); code != 0 {
		return st, st.Err()
	}
	return st, nil
}

// LstatInto is like StatInto, but does not follow symlinks.
func (p *POSIX) LstatInto(name string, out *FileStat) int {
	return p.statInto("lstat", name, out, false)
}

func (p *POSIX) statInto(op, name string, out *FileStat, follow bool) int {
	if out == nil {
		return p.fail(op, name, errors.Kindf(errors.InvalidArgument, "nil stat record"))
	}
	if err := p.lookup(name, out, follow); err != nil {
		out.reset(err)
		return p.fail(op, name, err)
	}
	return 0
}

// Fstat returns the metadata of an open handle. The executable heuristic
// needs a name and is not applied.
func (p *POSIX) Fstat(fd uintptr) (*FileStat, error) {
	st := newFileStat()
	if err := p.lookupFd(fd, st); err != nil {
		st.reset(err)
		p.fail("fstat", fmt.Sprintf("%#x", fd), err)
		return st, err
	}
	return st, nil
}

// FindFirstFile fills out from the directory entry of name. Neither the
// file index nor the link count are available, Ino is 0 and Nlink 1.
func (p *POSIX) FindFirstFile(name string, out *FileStat) int {
	if out == nil {
		return p.fail("findFirstFile", name, errors.Kindf(errors.InvalidArgument, "nil stat record"))
	}
	if err := p.findFirstFile(name, out); err != nil {
		out.reset(err)
		return p.fail("findFirstFile", name, err)
	}
	return 0
}
