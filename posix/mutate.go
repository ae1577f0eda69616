package posix

import (
	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	"github.com/restic/winposix/internal/fs"
	"github.com/restic/winposix/internal/winpath"
)

// Unlink removes the file name. Unlike POSIX, Windows refuses to delete a
// file while a handle without delete sharing is open on it; this fails
// with AccessDenied and nothing is deferred.
func (p *POSIX) Unlink(name string) int {
	if err := p.unlink(name); err != nil {
		return p.fail("unlink", name, err)
	}
	return 0
}

func (p *POSIX) unlink(name string) error {
	path, err := p.resolve(name)
	if err != nil {
		return err
	}
	debug.Log("unlink %v", path)

	return p.sys.DeleteFile(path.Win32())
}

// Utimes sets the access and modification times of name, following
// symlinks. A nil time means the current time.
func (p *POSIX) Utimes(name string, atime, mtime *Timeval) int {
	if err := p.utimes(name, atime, mtime); err != nil {
		return p.fail("utimes", name, err)
	}
	return 0
}

func (p *POSIX) utimes(name string, atime, mtime *Timeval) error {
	now := filetime.FromTime(p.now())

	a, err := timevalArg(atime, now)
	if err != nil {
		return errors.Wrap(err, "atime")
	}
	m, err := timevalArg(mtime, now)
	if err != nil {
		return errors.Wrap(err, "mtime")
	}

	path, err := p.resolve(name)
	if err != nil {
		return err
	}
	return p.setFileTime(path, a, m, fs.FILE_FLAG_BACKUP_SEMANTICS)
}

// Utimensat sets the access and modification times of name. A nil time or
// UTIME_NOW means the current time, UTIME_OMIT leaves the time unchanged.
//
// dirfd is ignored for absolute paths. Relative paths are resolved against
// the working directory for AT_FDCWD, otherwise against the directory
// handle dirfd. The only supported flag is AT_SYMLINK_NOFOLLOW.
func (p *POSIX) Utimensat(dirfd int, name string, atime, mtime *Timespec, flags int) int {
	if err := p.utimensat(dirfd, name, atime, mtime, flags); err != nil {
		return p.fail("utimensat", name, err)
	}
	return 0
}

func (p *POSIX) utimensat(dirfd int, name string, atime, mtime *Timespec, flags int) error {
	if flags&^AT_SYMLINK_NOFOLLOW != 0 {
		return errors.Kindf(errors.InvalidArgument, "unsupported flags %#x", flags)
	}

	now := filetime.FromTime(p.now())

	a, err := timespecArg(atime, now)
	if err != nil {
		return errors.Wrap(err, "atime")
	}
	m, err := timespecArg(mtime, now)
	if err != nil {
		return errors.Wrap(err, "mtime")
	}

	path, err := p.resolveAt(dirfd, name)
	if err != nil {
		return err
	}

	openFlags := uint32(fs.FILE_FLAG_BACKUP_SEMANTICS)
	if flags&AT_SYMLINK_NOFOLLOW != 0 {
		openFlags |= fs.FILE_FLAG_OPEN_REPARSE_POINT
	}
	return p.setFileTime(path, a, m, openFlags)
}

// resolveAt resolves name relative to dirfd.
func (p *POSIX) resolveAt(dirfd int, name string) (winpath.Path, error) {
	path, err := winpath.Parse(name)
	if err != nil {
		return winpath.Path{}, err
	}
	if path.IsAbs() || dirfd == AT_FDCWD {
		return p.resolve(name)
	}
	if dirfd < 0 {
		return winpath.Path{}, errors.Kindf(errors.InvalidArgument, "invalid directory handle %d", dirfd)
	}

	dir, err := p.sys.GetFinalPathNameByHandle(uintptr(dirfd))
	if err != nil {
		return winpath.Path{}, errors.Wrap(err, "directory handle")
	}
	return winpath.Resolve(dir, name)
}

func (p *POSIX) setFileTime(path winpath.Path, atime, mtime *filetime.Filetime, flags uint32) error {
	debug.Log("set times of %v: atime %v, mtime %v", path, atime, mtime)

	h, err := p.sys.CreateFile(path.Win32(), fs.FILE_WRITE_ATTRIBUTES, flags)
	if err != nil {
		return err
	}
	defer p.closeHandle(h, path.Display())

	return p.sys.SetFileTime(h.Fd(), atime, mtime)
}

// timespecArg converts a utimensat argument. A nil result leaves the time
// unchanged.
func timespecArg(ts *Timespec, now filetime.Filetime) (*filetime.Filetime, error) {
	switch {
	case ts == nil || ts.IsNow():
		return &now, nil
	case ts.IsOmit():
		return nil, nil
	}

	ft, err := filetime.FromTimespec(*ts)
	if err != nil {
		return nil, err
	}
	return checkFiletime(ft)
}

func timevalArg(tv *Timeval, now filetime.Filetime) (*filetime.Filetime, error) {
	if tv == nil {
		return &now, nil
	}

	ft, err := filetime.FromTimeval(*tv)
	if err != nil {
		return nil, err
	}
	return checkFiletime(ft)
}

// checkFiletime rejects 1601-01-01 00:00:00, SetFileTime reads a zero
// FILETIME as "do not change".
func checkFiletime(ft filetime.Filetime) (*filetime.Filetime, error) {
	if ft.IsZero() {
		return nil, errors.Kindf(errors.InvalidArgument, "time %v cannot be set", ft.Time())
	}
	return &ft, nil
}
