//go:build windows

package fs

import (
	"unsafe"

	"github.com/Microsoft/go-winio"
	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	"golang.org/x/sys/windows"
)

// Local is the Win32 API of the running system.
type Local struct{}

// statically ensure that Local implements Win32.
var _ Win32 = &Local{}

const shareAll = windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE | windows.FILE_SHARE_DELETE

// FindFirstFile calls FindFirstFileW and closes the search handle right away.
func (Local) FindFirstFile(path string) (FindData, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return FindData{}, errors.WithKind(errors.InvalidArgument, err)
	}

	var data windows.Win32finddata
	h, err := windows.FindFirstFile(p, &data)
	if err != nil {
		return FindData{}, errors.Wrapf(err, "FindFirstFile %v", path)
	}
	if err := windows.FindClose(h); err != nil {
		debug.Log("FindClose %v: %v", path, err)
	}

	return FindData{
		Attributes:     data.FileAttributes,
		CreationTime:   filetime.FromWindows(data.CreationTime),
		LastAccessTime: filetime.FromWindows(data.LastAccessTime),
		LastWriteTime:  filetime.FromWindows(data.LastWriteTime),
		Size:           uint64(data.FileSizeHigh)<<32 | uint64(data.FileSizeLow),
		ReparseTag:     data.Reserved0,
		Name:           windows.UTF16ToString(data.FileName[:]),
	}, nil
}

// GetFileAttributesEx calls GetFileAttributesExW with GetFileExInfoStandard.
func (Local) GetFileAttributesEx(path string) (AttributeData, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return AttributeData{}, errors.WithKind(errors.InvalidArgument, err)
	}

	var data windows.Win32FileAttributeData
	err = windows.GetFileAttributesEx(p, windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data)))
	if err != nil {
		return AttributeData{}, errors.Wrapf(err, "GetFileAttributesEx %v", path)
	}

	return AttributeData{
		Attributes:     data.FileAttributes,
		CreationTime:   filetime.FromWindows(data.CreationTime),
		LastAccessTime: filetime.FromWindows(data.LastAccessTime),
		LastWriteTime:  filetime.FromWindows(data.LastWriteTime),
		Size:           uint64(data.FileSizeHigh)<<32 | uint64(data.FileSizeLow),
	}, nil
}

type localHandle struct {
	h    windows.Handle
	name string
}

func (f *localHandle) Fd() uintptr {
	return uintptr(f.h)
}

func (f *localHandle) Close() error {
	if err := windows.CloseHandle(f.h); err != nil {
		return errors.Wrapf(err, "CloseHandle %v", f.name)
	}
	return nil
}

// CreateFile opens an existing path. With FILE_FLAG_BACKUP_SEMANTICS and the
// SeBackupPrivilege held, access checks are bypassed.
func (Local) CreateFile(path string, access, flags uint32) (Handle, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, errors.WithKind(errors.InvalidArgument, err)
	}

	h, err := windows.CreateFile(p, access, shareAll, nil, windows.OPEN_EXISTING, flags, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "CreateFile %v", path)
	}
	return &localHandle{h: h, name: path}, nil
}

// GetFileInformationByHandle combines GetFileInformationByHandle with the
// FileBasicInfo class of GetFileInformationByHandleEx for the change time.
func (Local) GetFileInformationByHandle(fd uintptr) (HandleInfo, error) {
	h := windows.Handle(fd)

	var bhfi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &bhfi); err != nil {
		return HandleInfo{}, errors.Wrap(err, "GetFileInformationByHandle")
	}

	info := HandleInfo{
		Attributes:         bhfi.FileAttributes,
		CreationTime:       filetime.FromWindows(bhfi.CreationTime),
		LastAccessTime:     filetime.FromWindows(bhfi.LastAccessTime),
		LastWriteTime:      filetime.FromWindows(bhfi.LastWriteTime),
		VolumeSerialNumber: bhfi.VolumeSerialNumber,
		Size:               uint64(bhfi.FileSizeHigh)<<32 | uint64(bhfi.FileSizeLow),
		NumberOfLinks:      bhfi.NumberOfLinks,
		FileIndex:          uint64(bhfi.FileIndexHigh)<<32 | uint64(bhfi.FileIndexLow),
	}

	var basic winio.FileBasicInfo
	err := windows.GetFileInformationByHandleEx(h, windows.FileBasicInfo, (*byte)(unsafe.Pointer(&basic)), uint32(unsafe.Sizeof(basic)))
	if err != nil {
		// FAT and some network redirectors do not track the change time
		debug.Log("GetFileInformationByHandleEx(FileBasicInfo): %v", err)
		return info, nil
	}
	info.ChangeTime = filetime.FromWindows(basic.ChangeTime)

	return info, nil
}

// GetFinalPathNameByHandle returns the normalized DOS path of fd.
func (Local) GetFinalPathNameByHandle(fd uintptr) (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	for {
		n, err := windows.GetFinalPathNameByHandle(windows.Handle(fd), &buf[0], uint32(len(buf)), FILE_NAME_NORMALIZED|VOLUME_NAME_DOS)
		if err != nil {
			return "", errors.Wrap(err, "GetFinalPathNameByHandle")
		}
		if n < uint32(len(buf)) {
			return windows.UTF16ToString(buf[:n]), nil
		}
		// n is the required size including the terminator
		buf = make([]uint16, n)
	}
}

// SetFileTime sets the access and write times, nil leaves a time unchanged.
// The creation time is never modified.
func (Local) SetFileTime(fd uintptr, atime, mtime *filetime.Filetime) error {
	var a, w *windows.Filetime
	if atime != nil {
		ft := atime.Windows()
		a = &ft
	}
	if mtime != nil {
		ft := mtime.Windows()
		w = &ft
	}

	if err := windows.SetFileTime(windows.Handle(fd), nil, a, w); err != nil {
		return errors.Wrap(err, "SetFileTime")
	}
	return nil
}

// DeleteFile calls DeleteFileW.
func (Local) DeleteFile(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return errors.WithKind(errors.InvalidArgument, err)
	}
	if err := windows.DeleteFile(p); err != nil {
		return errors.Wrapf(err, "DeleteFile %v", path)
	}
	return nil
}
