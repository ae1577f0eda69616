//go:build !windows

package fs

import (
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
)

// Local is the Win32 API of the running system. On this platform every call
// fails with an Unsupported error, use MemFS instead.
type Local struct{}

// statically ensure that Local implements Win32.
var _ Win32 = &Local{}

func unsupported(op string) error {
	return errors.Kindf(errors.Unsupported, "%v is only available on Windows", op)
}

func (Local) FindFirstFile(string) (FindData, error) {
	return FindData{}, unsupported("FindFirstFile")
}

func (Local) GetFileAttributesEx(string) (AttributeData, error) {
	return AttributeData{}, unsupported("GetFileAttributesEx")
}

func (Local) CreateFile(string, uint32, uint32) (Handle, error) {
	return nil, unsupported("CreateFile")
}

func (Local) GetFileInformationByHandle(uintptr) (HandleInfo, error) {
	return HandleInfo{}, unsupported("GetFileInformationByHandle")
}

func (Local) GetFinalPathNameByHandle(uintptr) (string, error) {
	return "", unsupported("GetFinalPathNameByHandle")
}

func (Local) SetFileTime(uintptr, *filetime.Filetime, *filetime.Filetime) error {
	return unsupported("SetFileTime")
}

func (Local) DeleteFile(string) error {
	return unsupported("DeleteFile")
}
