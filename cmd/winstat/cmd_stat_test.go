package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/restic/winposix/internal/errors"
	rtest "github.com/restic/winposix/internal/test"
	"github.com/restic/winposix/internal/winpath"
)

func TestStatPlain(t *testing.T) {
	env := newTestEnv(t)

	args := []string{`C:\work\file.txt`, "tool.exe", `C:\`, `\\server\share\remote.txt`}
	rtest.OK(t, runStat(context.TODO(), env.gopts, args, true))
	rtest.Equals(t, "", env.stderr.String())

	lines := env.lines()
	rtest.Equals(t, len(args), len(lines))

	// mode, links, size, device, inode, modified, path
	want := [][]string{
		{"0100644", "1", "5000", "0x2", args[0]},
		{"0100755", "1", "10", "0x2", args[1]},
		{"040755", "1", "0", "0x2", args[2]},
		{"0100644", "1", "1", fmt.Sprintf("%#x", winpath.ShareDeviceID("server", "share")), args[3]},
	}
	for i, line := range lines {
		rtest.Equals(t, 7, len(line))
		rtest.Equals(t, want[i], []string{line[0], line[1], line[2], line[3], line[6]})
	}
}

func TestStatJSON(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.JSON = true

	err := runStat(context.TODO(), env.gopts, []string{"file.txt", "missing.txt"}, true)
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)
	rtest.Equals(t, "", env.stderr.String())

	recs := env.records(t)
	rtest.Equals(t, 2, len(recs))

	rtest.Equals(t, "stat", recs[0].MessageType)
	rtest.Equals(t, uint32(0100644), recs[0].Mode)
	rtest.Equals(t, -1, recs[0].UID)
	rtest.Equals(t, int64(4096), recs[0].BlockSize)
	rtest.Assert(t, recs[0].Mtime.Equal(testTime), "wrong mtime %v", recs[0].Mtime)
	rtest.Assert(t, recs[0].Ino != 0, "missing inode")

	rtest.Equals(t, "missing.txt", recs[1].Path)
	rtest.Equals(t, -2, recs[1].Code)
	rtest.Assert(t, recs[1].Error != "", "missing error message")
}

func TestStatFailure(t *testing.T) {
	env := newTestEnv(t)

	err := runStat(context.TODO(), env.gopts, []string{"file.txt", "C:\\work\\bad\x00name"}, true)
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)
	rtest.Equals(t, 1, len(env.lines()))
	rtest.Assert(t, strings.Contains(env.stderr.String(), `C:\work\bad`), "failure not reported: %q", env.stderr.String())
}

func TestLstat(t *testing.T) {
	env := newTestEnv(t)
	rtest.OK(t, env.mem.Symlink(`C:\work\file.txt`, `C:\work\link`, false))

	rtest.OK(t, runStat(context.TODO(), env.gopts, []string{"link"}, false))
	rtest.OK(t, runStat(context.TODO(), env.gopts, []string{"link"}, true))

	lines := env.lines()
	rtest.Equals(t, 2, len(lines))
	rtest.Equals(t, "0120777", lines[0][0])
	rtest.Equals(t, "0100644", lines[1][0])
	rtest.Equals(t, "5000", lines[1][2])
}

func TestStatCanceled(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runStat(ctx, env.gopts, []string{"file.txt"}, true)
	rtest.Assert(t, errors.Is(err, context.Canceled), "unexpected error %v", err)
	rtest.Equals(t, "", env.stdout.String())
}

func TestFind(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.JSON = true

	err := runFind(context.TODO(), env.gopts, []string{"tool.exe", "*.exe"})
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)

	recs := env.records(t)
	rtest.Equals(t, 2, len(recs))
	rtest.Equals(t, uint32(0100755), recs[0].Mode)
	rtest.Equals(t, uint64(0), recs[0].Ino)
	rtest.Equals(t, uint32(1), recs[0].Nlink)
	rtest.Equals(t, -22, recs[1].Code)
}

func TestStatJSONFirstDrive(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.JSON = true
	rtest.OK(t, env.mem.AddVolume(`A:`))
	rtest.OK(t, env.mem.WriteFile(`A:\floppy.img`, 1))

	rtest.OK(t, runStat(context.TODO(), env.gopts, []string{`A:\floppy.img`}, true))

	// drive A: has device id 0, which must still be reported
	out := env.stdout.String()
	rtest.Assert(t, strings.Contains(out, `"dev":0,`), "device id missing in %q", out)

	recs := env.records(t)
	rtest.Equals(t, 1, len(recs))
	rtest.Equals(t, uint64(0), recs[0].Dev)
}

func TestStatVerboseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gopts.Verbose = true

	err := runStat(context.TODO(), env.gopts, []string{"file.txt", "missing.txt"}, true)
	rtest.Assert(t, errors.Is(err, ErrPartialFailure), "unexpected error %v", err)
	rtest.Equals(t, 1, env.stderrLines("missing.txt"))
}
