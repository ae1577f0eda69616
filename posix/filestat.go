package posix

import (
	"fmt"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/fs"
)

const (
	// BlockSize is the st_blksize reported for every file.
	BlockSize = 4096

	// UnsupportedUID is reported as st_uid. Windows has no numeric user ids,
	// the value is a sentinel and not a real id.
	UnsupportedUID = -1
)

// FileStat is an emulated POSIX stat record. It is filled once by a
// successful lookup and is a snapshot afterwards.
type FileStat struct {
	dev   uint64
	ino   uint64
	nlink uint32
	uid   int
	mode  uint32
	size  int64

	atime, mtime, ctime, birthtime Timespec

	attrs uint32
	valid bool
	err   error
}

func newFileStat() *FileStat {
	return &FileStat{uid: UnsupportedUID}
}

// reset puts st into the failure state.
func (st *FileStat) reset(err error) {
	*st = FileStat{uid: UnsupportedUID, err: err}
}

// fill sets st from handle metadata. name is the file name used for the
// executable heuristic, tag the reparse tag of the entry if it was examined
// without following it.
func (st *FileStat) fill(info fs.HandleInfo, tag uint32, name string, dev uint64) {
	nlink := info.NumberOfLinks
	if nlink == 0 {
		nlink = 1
	}

	ctime := info.ChangeTime
	if ctime.IsZero() {
		ctime = info.CreationTime
	}

	*st = FileStat{
		dev:       dev,
		ino:       info.FileIndex,
		nlink:     nlink,
		uid:       UnsupportedUID,
		mode:      fileMode(info.Attributes, tag, name),
		size:      int64(info.Size),
		atime:     info.LastAccessTime.Timespec(),
		mtime:     info.LastWriteTime.Timespec(),
		ctime:     ctime.Timespec(),
		birthtime: info.CreationTime.Timespec(),
		attrs:     info.Attributes,
		valid:     true,
	}
}

// fillFind sets st from a directory entry, without index and link count.
func (st *FileStat) fillFind(data fs.FindData, dev uint64) {
	st.fill(fs.HandleInfo{
		Attributes:     data.Attributes,
		CreationTime:   data.CreationTime,
		LastAccessTime: data.LastAccessTime,
		LastWriteTime:  data.LastWriteTime,
		Size:           data.Size,
		NumberOfLinks:  1,
	}, data.ReparseTag, data.Name, dev)
}

// Dev returns the device id.
func (st *FileStat) Dev() uint64 { return st.dev }

// Rdev returns the same value as Dev.
func (st *FileStat) Rdev() uint64 { return st.dev }

// Ino returns the NTFS file index.
func (st *FileStat) Ino() uint64 { return st.ino }

// Nlink returns the number of hard links.
func (st *FileStat) Nlink() uint32 { return st.nlink }

// UID always returns UnsupportedUID.
func (st *FileStat) UID() int { return st.uid }

// GID fails with an Unsupported error, Windows has no group ids.
func (st *FileStat) GID() (int, error) {
	return 0, errors.Kindf(errors.Unsupported, "gid is not supported on Windows")
}

func (st *FileStat) Mode() uint32 { return st.mode }
func (st *FileStat) Size() int64  { return st.size }

// BlockSize returns the fixed block size of 4096 bytes.
func (st *FileStat) BlockSize() int64 { return BlockSize }

// Blocks returns the number of blocks needed for Size, rounded up.
func (st *FileStat) Blocks() int64 {
	if st.size <= 0 {
		return 0
	}
	return (st.size + BlockSize - 1) / BlockSize
}

func (st *FileStat) Atime() Timespec { return st.atime }
func (st *FileStat) Mtime() Timespec { return st.mtime }

// Ctime returns the NTFS change time, or the creation time on volumes that
// do not record one.
func (st *FileStat) Ctime() Timespec { return st.ctime }

// Birthtime returns the creation time.
func (st *FileStat) Birthtime() Timespec { return st.birthtime }

func (st *FileStat) AtimeSec() int64 { return st.atime.Sec }
func (st *FileStat) MtimeSec() int64 { return st.mtime.Sec }
func (st *FileStat) CtimeSec() int64 { return st.ctime.Sec }

// Attributes returns the raw Win32 file attributes.
func (st *FileStat) Attributes() uint32 { return st.attrs }

func (st *FileStat) IsFile() bool      { return st.mode&S_IFMT == S_IFREG }
func (st *FileStat) IsDirectory() bool { return st.mode&S_IFMT == S_IFDIR }
func (st *FileStat) IsSymlink() bool   { return st.mode&S_IFMT == S_IFLNK }

// IsExecutable reports whether st is a regular file with an executable
// name suffix.
func (st *FileStat) IsExecutable() bool {
	return st.IsFile() && st.mode&0111 != 0
}

// Valid reports whether st was filled by a successful lookup.
func (st *FileStat) Valid() bool { return st.valid }

// Err returns the error of the lookup that left st invalid.
func (st *FileStat) Err() error { return st.err }

func (st *FileStat) String() string {
	if !st.valid {
		return fmt.Sprintf("<invalid stat: %v>", st.err)
	}
	return fmt.Sprintf("dev=%d ino=%#x nlink=%d mode=%#o size=%d mtime=%v",
		st.dev, st.ino, st.nlink, st.mode, st.size, st.mtime.Time())
}
