package main

import (
	"context"
	"strings"
	"testing"

	"github.com/restic/winposix/internal/errors"
	rtest "github.com/restic/winposix/internal/test"
)

func TestRm(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.Verbose = true

	rtest.OK(t, runRm(context.TODO(), env.gopts, []string{"file.txt", `C:\work\tool.exe`}))
	rtest.Assert(t, !env.mem.Exists(`C:\work\file.txt`), "file.txt still exists")
	rtest.Assert(t, !env.mem.Exists(`C:\work\tool.exe`), "tool.exe still exists")
	rtest.Equals(t, "removed file.txt\nremoved C:\\work\\tool.exe\n", env.stderr.String())
}

func TestRmErrors(t *testing.T) {
	env := newTestEnv(t)

	h, err := env.mem.Lock(`C:\work\file.txt`)
	rtest.OK(t, err)

	err = runRm(context.TODO(), env.gopts, []string{"file.txt", "sub", "missing.txt", "tool.exe"})
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)
	rtest.OK(t, h.Close())

	for _, name := range []string{"rm file.txt", "rm sub", "rm missing.txt"} {
		rtest.Assert(t, strings.Contains(env.stderr.String(), name), "failure of %q not reported: %q", name, env.stderr.String())
	}
	rtest.Assert(t, env.mem.Exists(`C:\work\file.txt`), "locked file was removed")
	rtest.Assert(t, !env.mem.Exists(`C:\work\tool.exe`), "tool.exe still exists")
}

func TestRmVerboseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.Verbose = true

	err := runRm(context.TODO(), env.gopts, []string{"missing.txt"})
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)
	rtest.Equals(t, 1, env.stderrLines("missing.txt"))
}
