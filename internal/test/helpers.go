package test

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/restic/winposix/internal/errors"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...any) {
	tb.Helper()
	if !condition {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: "+msg+"\033[39m\n\n", append([]any{filepath.Base(file), line}, v...)...)
		tb.FailNow()
	}
}

// OK fails the test if an err is not nil.
func OK(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d: unexpected error: %+v\033[39m\n\n", filepath.Base(file), line, err)
		tb.FailNow()
	}
}

// Equals fails the test if exp is not equal to act.
func Equals(tb testing.TB, exp, act any) {
	tb.Helper()
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("\033[31m%s:%d:\n\n\texp: %#v\n\n\tgot: %#v\033[39m\n\n", filepath.Base(file), line, exp, act)
		tb.FailNow()
	}
}

// ErrorKind fails the test unless err is non-nil and classified as kind.
func ErrorKind(tb testing.TB, err error, kind errors.Kind) {
	tb.Helper()
	if err == nil {
		tb.Fatalf("expected %v error, got nil", kind)
	}
	if got := errors.KindOf(err); got != kind {
		tb.Fatalf("expected %v error, got %v: %+v", kind, got, err)
	}
}

// Code fails the test if the POSIX return code differs from exp.
func Code(tb testing.TB, exp, act int) {
	tb.Helper()
	if exp != act {
		tb.Fatalf("wrong return code: want %d, got %d", exp, act)
	}
}

func isFile(fi os.FileInfo) bool {
	return fi.Mode()&(os.ModeType|os.ModeCharDevice) == 0
}

// ResetReadOnly recursively resets the read-only flag recursively for dir.
// This is mainly used for tests on Windows, which is unable to delete a file
// set read-only.
func ResetReadOnly(t testing.TB, dir string) {
	err := filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if fi == nil {
			return err
		}

		if fi.IsDir() {
			return os.Chmod(path, 0777)
		}

		if isFile(fi) {
			return os.Chmod(path, 0666)
		}

		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	OK(t, err)
}

// RemoveAll recursively resets the read-only flag of all files and dirs and
// afterwards uses os.RemoveAll() to remove the path.
func RemoveAll(t testing.TB, path string) {
	ResetReadOnly(t, path)
	err := os.RemoveAll(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	OK(t, err)
}

// TempDir returns a temporary directory that is removed by t.Cleanup,
// except if TestCleanupTempDirs is set to false.
func TempDir(t testing.TB) string {
	tempdir, err := os.MkdirTemp(TestTempDir, "winposix-test-")
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if !TestCleanupTempDirs {
			t.Logf("leaving temporary directory %v used for test", tempdir)
			return
		}

		RemoveAll(t, tempdir)
	})
	return tempdir
}

// TempFile creates an empty file with the given name suffix in a fresh
// temporary directory and returns its absolute path.
func TempFile(t testing.TB, prefix, suffix string) string {
	f, err := os.CreateTemp(TempDir(t), prefix+"*"+suffix)
	OK(t, err)
	OK(t, f.Close())

	abs, err := filepath.Abs(f.Name())
	OK(t, err)
	return abs
}

// LongPathSegment is the directory name repeated by NestedDirs.
const LongPathSegment = "0123456789"

// NestedDirs creates depth directories named LongPathSegment below base and
// returns the innermost one. All of them live below base, so removing base
// (as TempDir does) removes them all again.
func NestedDirs(t testing.TB, base string, depth int) string {
	elems := make([]string, 0, depth+1)
	elems = append(elems, base)
	for i := 0; i < depth; i++ {
		elems = append(elems, LongPathSegment)
	}
	leaf := strings.Join(elems, string(filepath.Separator))

	// os.MkdirAll prefixes long paths on Windows by itself
	OK(t, os.MkdirAll(leaf, 0755))
	return leaf
}
