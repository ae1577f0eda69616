//go:build windows

package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/filetime"
	"github.com/restic/winposix/internal/fs"
	rtest "github.com/restic/winposix/internal/test"
	"github.com/restic/winposix/internal/winpath"
	"golang.org/x/sys/windows"
)

func TestConstants(t *testing.T) {
	rtest.Equals(t, uint32(windows.FILE_ATTRIBUTE_READONLY), uint32(fs.FILE_ATTRIBUTE_READONLY))
	rtest.Equals(t, uint32(windows.FILE_ATTRIBUTE_DIRECTORY), uint32(fs.FILE_ATTRIBUTE_DIRECTORY))
	rtest.Equals(t, uint32(windows.FILE_ATTRIBUTE_REPARSE_POINT), uint32(fs.FILE_ATTRIBUTE_REPARSE_POINT))
	rtest.Equals(t, uint32(windows.IO_REPARSE_TAG_SYMLINK), uint32(fs.IO_REPARSE_TAG_SYMLINK))
	rtest.Equals(t, uint32(windows.FILE_READ_ATTRIBUTES), uint32(fs.FILE_READ_ATTRIBUTES))
	rtest.Equals(t, uint32(windows.FILE_WRITE_ATTRIBUTES), uint32(fs.FILE_WRITE_ATTRIBUTES))
	rtest.Equals(t, uint32(windows.FILE_FLAG_BACKUP_SEMANTICS), uint32(fs.FILE_FLAG_BACKUP_SEMANTICS))
	rtest.Equals(t, uint32(windows.FILE_FLAG_OPEN_REPARSE_POINT), uint32(fs.FILE_FLAG_OPEN_REPARSE_POINT))
}

func TestLocalRoundTrip(t *testing.T) {
	var sys fs.Local
	name := rtest.TempFile(t, "local", ".txt")
	rtest.OK(t, os.WriteFile(name, []byte("foobar"), 0644))

	data, err := sys.FindFirstFile(name)
	rtest.OK(t, err)
	rtest.Equals(t, filepath.Base(name), data.Name)
	rtest.Equals(t, uint64(6), data.Size)

	attrs, err := sys.GetFileAttributesEx(name)
	rtest.OK(t, err)
	rtest.Equals(t, data.LastWriteTime, attrs.LastWriteTime)

	h, err := sys.CreateFile(name, fs.FILE_READ_ATTRIBUTES|fs.FILE_WRITE_ATTRIBUTES, fs.FILE_FLAG_BACKUP_SEMANTICS)
	rtest.OK(t, err)

	mtime := filetime.FromTime(time.Date(2001, 2, 3, 4, 5, 6, 700, time.UTC))
	rtest.OK(t, sys.SetFileTime(h.Fd(), nil, &mtime))

	info, err := sys.GetFileInformationByHandle(h.Fd())
	rtest.OK(t, err)
	rtest.Equals(t, uint32(1), info.NumberOfLinks)
	rtest.Equals(t, uint64(6), info.Size)
	rtest.Equals(t, mtime, info.LastWriteTime)
	rtest.Assert(t, info.FileIndex != 0, "file index is zero")

	final, err := sys.GetFinalPathNameByHandle(h.Fd())
	rtest.OK(t, err)
	rtest.Assert(t, len(final) > 4 && final[:4] == `\\?\`, "final path %q lacks prefix", final)
	rtest.OK(t, h.Close())

	rtest.OK(t, sys.DeleteFile(name))
	_, err = sys.GetFileAttributesEx(name)
	rtest.ErrorKind(t, err, errors.NotFound)
	rtest.ErrorKind(t, sys.DeleteFile(name), errors.NotFound)
}

func TestLocalFindFirstFileRoot(t *testing.T) {
	var sys fs.Local
	_, err := sys.FindFirstFile(`C:\`)
	rtest.Assert(t, err != nil, "FindFirstFile succeeded for a volume root")

	attrs, err := sys.GetFileAttributesEx(`C:\`)
	rtest.OK(t, err)
	rtest.Assert(t, attrs.Attributes&fs.FILE_ATTRIBUTE_DIRECTORY != 0, "root is not a directory")
}

func TestLocalFinalPathLong(t *testing.T) {
	var sys fs.Local
	dir, err := filepath.Abs(rtest.TempDir(t))
	rtest.OK(t, err)
	leaf := rtest.NestedDirs(t, dir, 30)

	path, err := winpath.Parse(leaf + `\file.txt`)
	rtest.OK(t, err)
	rtest.Assert(t, path.IsLong(), "%v is not a long path", path)
	rtest.OK(t, os.WriteFile(path.Win32(), []byte("x"), 0644))

	h, err := sys.CreateFile(path.Win32(), fs.FILE_READ_ATTRIBUTES, fs.FILE_FLAG_BACKUP_SEMANTICS)
	rtest.OK(t, err)
	defer func() {
		rtest.OK(t, h.Close())
	}()

	// longer than the initial MAX_PATH buffer
	final, err := sys.GetFinalPathNameByHandle(h.Fd())
	rtest.OK(t, err)
	rtest.Assert(t, len(final) > windows.MAX_PATH, "final path %q too short", final)
	rtest.Assert(t, strings.HasPrefix(final, `\\?\`), "final path %q lacks prefix", final)
	rtest.Assert(t, strings.HasSuffix(final, strings.Repeat(`\`+rtest.LongPathSegment, 30)+`\file.txt`),
		"final path %q does not end in the nested directories", final)
}
