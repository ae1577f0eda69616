//go:build windows

package errors

import (
	stderrors "errors"

	"golang.org/x/sys/windows"
)

// platformKind classifies Win32 error codes.
func platformKind(err error) (Kind, bool) {
	var errno windows.Errno
	if !stderrors.As(err, &errno) {
		return IoError, false
	}

	switch errno {
	case windows.ERROR_FILE_NOT_FOUND,
		windows.ERROR_PATH_NOT_FOUND,
		windows.ERROR_INVALID_DRIVE,
		windows.ERROR_BAD_NETPATH,
		windows.ERROR_BAD_NET_NAME,
		windows.ERROR_NO_MORE_FILES:
		return NotFound, true
	case windows.ERROR_ACCESS_DENIED,
		windows.ERROR_SHARING_VIOLATION,
		windows.ERROR_LOCK_VIOLATION,
		windows.ERROR_PRIVILEGE_NOT_HELD,
		windows.ERROR_WRITE_PROTECT:
		return AccessDenied, true
	case windows.ERROR_INVALID_NAME,
		windows.ERROR_INVALID_PARAMETER,
		windows.ERROR_BAD_PATHNAME,
		windows.ERROR_FILENAME_EXCED_RANGE,
		windows.ERROR_DIRECTORY,
		windows.ERROR_INVALID_HANDLE:
		return InvalidArgument, true
	case windows.ERROR_NOT_SUPPORTED,
		windows.ERROR_CALL_NOT_IMPLEMENTED:
		return Unsupported, true
	}
	return IoError, true
}
