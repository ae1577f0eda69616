package fs

import "github.com/restic/winposix/internal/filetime"

// Win32 bundles the Win32 file system calls needed to emulate POSIX
// metadata. Paths must be absolute and in the form returned by
// winpath.Path.Win32, i.e. long paths already carry the \\?\ prefix.
//
// Local implements it with the real API on Windows, MemFS is an in-memory
// implementation with the same semantics usable on every platform.
type Win32 interface {
	// FindFirstFile returns the directory entry for path. Wildcards are not
	// interpreted. Like the real API it fails for the root of a volume.
	FindFirstFile(path string) (FindData, error)
	// GetFileAttributesEx returns the attribute data for path without
	// following reparse points.
	GetFileAttributesEx(path string) (AttributeData, error)
	// CreateFile opens an existing file or directory for metadata access.
	// The handle always shares read, write and delete access.
	CreateFile(path string, access, flags uint32) (Handle, error)

	// GetFileInformationByHandle returns the metadata of an open handle.
	// ChangeTime is zero if the file system does not report it.
	GetFileInformationByHandle(fd uintptr) (HandleInfo, error)
	// GetFinalPathNameByHandle returns the normalized path of an open handle,
	// including the \\?\ prefix.
	GetFinalPathNameByHandle(fd uintptr) (string, error)
	// SetFileTime sets the access and write times of an open handle. A nil
	// pointer leaves the corresponding time unchanged.
	SetFileTime(fd uintptr, atime, mtime *filetime.Filetime) error

	// DeleteFile removes a file. It fails for directories and while another
	// handle without delete sharing is open.
	DeleteFile(path string) error
}

// Handle is an open file handle.
type Handle interface {
	Fd() uintptr
	Close() error
}

// FindData is the subset of WIN32_FIND_DATAW used for stat.
type FindData struct {
	Attributes     uint32
	CreationTime   filetime.Filetime
	LastAccessTime filetime.Filetime
	LastWriteTime  filetime.Filetime
	Size           uint64
	// ReparseTag is only valid if Attributes has FILE_ATTRIBUTE_REPARSE_POINT.
	ReparseTag uint32
	Name       string
}

// AttributeData is WIN32_FILE_ATTRIBUTE_DATA.
type AttributeData struct {
	Attributes     uint32
	CreationTime   filetime.Filetime
	LastAccessTime filetime.Filetime
	LastWriteTime  filetime.Filetime
	Size           uint64
}

// HandleInfo combines BY_HANDLE_FILE_INFORMATION with the change time from
// FILE_BASIC_INFO.
type HandleInfo struct {
	Attributes         uint32
	CreationTime       filetime.Filetime
	LastAccessTime     filetime.Filetime
	LastWriteTime      filetime.Filetime
	ChangeTime         filetime.Filetime
	VolumeSerialNumber uint32
	Size               uint64
	NumberOfLinks      uint32
	FileIndex          uint64
}

// IsDir reports whether the directory attribute is set.
func (d FindData) IsDir() bool { return d.Attributes&FILE_ATTRIBUTE_DIRECTORY != 0 }

// IsSymlink reports whether the entry is a symbolic link reparse point.
func (d FindData) IsSymlink() bool {
	return d.Attributes&FILE_ATTRIBUTE_REPARSE_POINT != 0 && d.ReparseTag == IO_REPARSE_TAG_SYMLINK
}

// FindData converts attribute data into the form returned by FindFirstFile.
// The reparse tag is not part of WIN32_FILE_ATTRIBUTE_DATA and stays zero.
func (a AttributeData) FindData(name string) FindData {
	return FindData{
		Attributes:     a.Attributes,
		CreationTime:   a.CreationTime,
		LastAccessTime: a.LastAccessTime,
		LastWriteTime:  a.LastWriteTime,
		Size:           a.Size,
		Name:           name,
	}
}
