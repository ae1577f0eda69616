package posix

import (
	"strings"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/fs"
	"github.com/restic/winposix/internal/winpath"
)

// lookup fills out with the metadata of name. The directory entry is only
// needed for the reparse tag, all other fields come from a handle, which
// also works for volume roots.
func (p *POSIX) lookup(name string, out *FileStat, follow bool) error {
	path, err := p.resolve(name)
	if err != nil {
		return err
	}
	debug.Log("lookup %v, follow %v", path, follow)

	data, err := p.findData(path)
	if err != nil {
		return err
	}

	flags := uint32(fs.FILE_FLAG_BACKUP_SEMANTICS)
	if !follow {
		flags |= fs.FILE_FLAG_OPEN_REPARSE_POINT
	}
	info, err := p.handleInfo(path.Win32(), flags)
	if err != nil {
		return err
	}

	var tag uint32
	if !follow {
		tag = data.ReparseTag
	}
	out.fill(info, tag, path.Base(), path.DeviceID())
	return nil
}

// findData runs FindFirstFile for path and falls back to the attribute
// query if that fails, which it always does for volume roots.
func (p *POSIX) findData(path winpath.Path) (fs.FindData, error) {
	data, err := p.sys.FindFirstFile(path.Win32())
	if err == nil {
		return data, nil
	}

	attrs, aerr := p.sys.GetFileAttributesEx(path.Win32())
	if aerr != nil {
		debug.Log("FindFirstFile %v: %v, attribute query: %v", path, err, aerr)
		return fs.FindData{}, aerr
	}

	if path.IsRoot() {
		debug.Log("volume root %v, using attribute query", path)
	} else {
		p.handler.Warn("FindFirstFile %v failed, using attribute query: %v", path, err)
	}
	return attrs.FindData(path.Base()), nil
}

// handleInfo opens name for reading attributes and queries the handle.
func (p *POSIX) handleInfo(name string, flags uint32) (fs.HandleInfo, error) {
	h, err := p.sys.CreateFile(name, fs.FILE_READ_ATTRIBUTES, flags)
	if err != nil {
		return fs.HandleInfo{}, err
	}
	defer p.closeHandle(h, name)

	return p.sys.GetFileInformationByHandle(h.Fd())
}

// lookupFd fills out from an open handle. The device id is derived from the
// final path of the handle and is 0 if that is not available.
func (p *POSIX) lookupFd(fd uintptr, out *FileStat) error {
	info, err := p.sys.GetFileInformationByHandle(fd)
	if err != nil {
		return err
	}

	var dev uint64
	final, err := p.sys.GetFinalPathNameByHandle(fd)
	if err == nil {
		var path winpath.Path
		path, err = winpath.Parse(final)
		if err == nil {
			dev = path.DeviceID()
		}
	}
	if err != nil {
		debug.Log("device id of handle %#x: %v", fd, err)
	}

	out.fill(info, 0, "", dev)
	return nil
}

func (p *POSIX) findFirstFile(name string, out *FileStat) error {
	path, err := p.resolve(name)
	if err != nil {
		return err
	}
	if strings.ContainsAny(path.Base(), "*?") {
		return errors.Kindf(errors.InvalidArgument, "%v: wildcards are not supported", name)
	}
	debug.Log("findFirstFile %v", path)

	data, err := p.sys.FindFirstFile(path.Win32())
	if err != nil {
		return err
	}
	out.fillFind(data, path.DeviceID())
	return nil
}
