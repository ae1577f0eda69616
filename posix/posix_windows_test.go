//go:build windows

package posix_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/restic/winposix/internal/errors"
	rtest "github.com/restic/winposix/internal/test"
	"github.com/restic/winposix/internal/winpath"
	"github.com/restic/winposix/posix"
)

func newLocal(t testing.TB) (*posix.POSIX, string) {
	dir := rtest.TempDir(t)
	abs, err := filepath.Abs(dir)
	rtest.OK(t, err)
	return posix.New(posix.DummyHandler{}), abs
}

func createFile(t testing.TB, name string, data string) string {
	rtest.OK(t, os.WriteFile(name, []byte(data), 0644))
	return name
}

func TestLocalStatDriveRoot(t *testing.T) {
	p, dir := newLocal(t)
	vol := filepath.VolumeName(dir)
	if len(vol) != 2 {
		t.Skipf("temp dir %v is not on a drive", dir)
	}

	path, err := winpath.Parse(vol)
	rtest.OK(t, err)
	dev := path.DeviceID()

	for _, name := range []string{
		strings.ToLower(vol) + "/",
		strings.ToLower(vol) + `\`,
		strings.ToUpper(vol),
	} {
		st, err := p.Stat(name)
		rtest.OK(t, err)
		rtest.Equals(t, dev, st.Dev())
		rtest.Equals(t, dev, st.Rdev())
		rtest.Assert(t, st.IsDirectory(), "%v is not a directory", name)
	}
}

func TestLocalStat(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "file.txt"), "foobar")

	st, err := p.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, st.Dev(), st.Rdev())
	rtest.Equals(t, uint32(1), st.Nlink())
	rtest.Equals(t, -1, st.UID())
	rtest.Equals(t, int64(4096), st.BlockSize())
	rtest.Equals(t, int64(6), st.Size())
	rtest.Equals(t, int64(1), st.Blocks())
	rtest.Assert(t, st.IsFile(), "not a file: %o", st.Mode())

	_, err = st.GID()
	rtest.ErrorKind(t, err, errors.Unsupported)

	fi, err := os.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, fi.ModTime().Unix(), st.MtimeSec())
}

func TestLocalStatExecutable(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "STAT123.EXE"), "")

	st, err := p.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, "100755", strconv.FormatUint(uint64(st.Mode()), 8))
	rtest.Assert(t, st.IsExecutable(), "STAT123.EXE is not executable")
}

func TestLocalHardlinks(t *testing.T) {
	p, dir := newLocal(t)
	src := createFile(t, filepath.Join(dir, "linkSource"), "data")
	dst := filepath.Join(dir, "linkDest")
	rtest.OK(t, os.Link(src, dst))

	var stats []*posix.FileStat
	for _, name := range []string{src, dst} {
		f, err := os.Open(name)
		rtest.OK(t, err)
		st, err := p.Fstat(f.Fd())
		rtest.OK(t, err)
		rtest.OK(t, f.Close())
		stats = append(stats, st)
	}

	rtest.Equals(t, uint32(2), stats[0].Nlink())
	rtest.Equals(t, uint32(2), stats[1].Nlink())
	rtest.Equals(t, stats[0].Ino(), stats[1].Ino())

	st, err := p.Stat(src)
	rtest.OK(t, err)
	rtest.Equals(t, stats[0].Ino(), st.Ino())
	rtest.Equals(t, st.Dev(), stats[0].Dev())
}

func TestLocalLongPath(t *testing.T) {
	p, dir := newLocal(t)
	leaf := rtest.NestedDirs(t, dir, 30)
	name := leaf + `\file.txt`

	path, err := winpath.Parse(name)
	rtest.OK(t, err)
	rtest.Assert(t, path.IsLong(), "%v is not a long path", name)
	rtest.OK(t, os.WriteFile(path.Win32(), []byte("x"), 0644))

	st, err := p.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, int64(1), st.Size())
	rtest.Code(t, 0, p.StatInto(name, p.AllocateStat()))
	rtest.Code(t, 0, p.StatInto(leaf, p.AllocateStat()))
}

func TestLocalAdminShare(t *testing.T) {
	if !rtest.RunUNCTest {
		rtest.SkipDisallowed(t, "TestLocalAdminShare")
		t.Skip("UNC tests disabled")
	}

	p, dir := newLocal(t)
	vol := filepath.VolumeName(dir)
	if len(vol) != 2 {
		t.Skipf("temp dir %v is not on a drive", dir)
	}
	name := createFile(t, filepath.Join(dir, "file.txt"), "foobar")
	unc := `\\` + rtest.TestUNCHost + `\` + vol[:1] + `$` + name[2:]

	out := p.AllocateStat()
	if code := p.StatInto(unc, out); code != 0 {
		rtest.SkipDisallowed(t, "TestLocalAdminShare")
		t.Skipf("administrative share not reachable (%d): %v", code, out.Err())
	}

	st, err := p.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, st.Ino(), out.Ino())
	rtest.Equals(t, st.Size(), out.Size())
	rtest.Equals(t, st.Dev(), out.Dev())
}

func TestLocalUnlink(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "unlink.txt"), "x")

	f, err := os.Open(name)
	rtest.OK(t, err)
	rtest.Code(t, -13, p.Unlink(name))
	rtest.OK(t, f.Close())

	rtest.Code(t, 0, p.Unlink(name))
	_, err = os.Stat(name)
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "file still exists: %v", err)

	_, err = p.Stat(name)
	rtest.ErrorKind(t, err, errors.NotFound)
	rtest.Code(t, -2, p.Unlink(name))
}

func TestLocalUtimensat(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "times.txt"), "x")

	st, err := p.Stat(name)
	rtest.OK(t, err)
	a0, m0 := st.AtimeSec(), st.MtimeSec()

	atime := posix.Timespec{Sec: a0 + 1, Nsec: 123456700}
	mtime := posix.Timespec{Sec: m0 - 1, Nsec: 987654300}
	rtest.Code(t, 0, p.Utimensat(0, name, &atime, &mtime, 0))

	st, err = p.Stat(name)
	rtest.OK(t, err)
	rtest.Equals(t, a0+1, st.AtimeSec())
	rtest.Equals(t, m0-1, st.MtimeSec())
	rtest.Equals(t, int64(987654300), st.Mtime().Nsec)
}

func TestLocalUtimensatNow(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "now.txt"), "x")

	past := posix.Timespec{Sec: time.Now().Unix() - 1000}
	rtest.Code(t, 0, p.Utimensat(0, name, &past, &past, 0))

	before := time.Now()
	rtest.Code(t, 0, p.Utimensat(0, name, nil, nil, 0))

	st, err := p.Stat(name)
	rtest.OK(t, err)
	for _, ts := range []posix.Timespec{st.Atime(), st.Mtime()} {
		diff := ts.Time().Sub(before)
		rtest.Assert(t, diff > -10*time.Second && diff < 10*time.Second, "time %v not within 10s of %v", ts.Time(), before)
	}
}

func TestLocalFindFirstFile(t *testing.T) {
	p, dir := newLocal(t)
	name := createFile(t, filepath.Join(dir, "Find.CMD"), "x")

	out := p.AllocateStat()
	rtest.Code(t, 0, p.FindFirstFile(name, out))
	rtest.Equals(t, uint32(0100755), out.Mode())
	rtest.Equals(t, uint32(1), out.Nlink())
	rtest.Equals(t, int64(1), out.Size())

	rtest.Assert(t, p.FindFirstFile(filepath.Join(dir, "nonexistent"), out) < 0, "lookup of missing file succeeded")
}
