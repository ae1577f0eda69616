package global

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/fs"
	rtest "github.com/restic/winposix/internal/test"
)

func notChanged(string) bool { return false }

func TestVerboseEnv(t *testing.T) {
	t.Setenv("WINPOSIX_VERBOSE", "true")

	var opts Options
	opts.AddFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	rtest.OK(t, opts.PreRun(notChanged))
	rtest.Assert(t, opts.Verbose, "$WINPOSIX_VERBOSE was not applied")

	// an explicit flag wins over the environment
	opts = Options{}
	opts.AddFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	rtest.OK(t, opts.PreRun(func(name string) bool { return name == "verbose" }))
	rtest.Assert(t, !opts.Verbose, "$WINPOSIX_VERBOSE overrode the flag")
}

func TestVerboseEnvParseError(t *testing.T) {
	t.Setenv("WINPOSIX_VERBOSE", "loud")

	var opts Options
	opts.AddFlags(pflag.NewFlagSet("test", pflag.ContinueOnError))
	err := opts.PreRun(notChanged)
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)
	rtest.Assert(t, strings.Contains(err.Error(), "WINPOSIX_VERBOSE"), "unexpected error message %v", err)
}

func TestJobs(t *testing.T) {
	opts := Options{Jobs: 0}
	err := opts.PreRun(notChanged)
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)

	opts = Options{Jobs: 4}
	rtest.OK(t, opts.PreRun(notChanged))
	rtest.Assert(t, opts.Stdout != nil && opts.Stderr != nil, "output streams not set")
}

func TestHandler(t *testing.T) {
	mem := fs.NewMemFS(`C:`)
	rtest.OK(t, mem.MkdirAll(`C:\work`))
	rtest.OK(t, mem.WriteFile(`C:\work\file.txt`, 3))

	for _, verbose := range []bool{false, true} {
		stderr := &bytes.Buffer{}
		opts := Options{Verbose: verbose, Stderr: stderr, Sys: mem, WorkingDir: `C:\work`}
		p := opts.POSIX()

		st, err := p.Stat("file.txt")
		rtest.OK(t, err)
		rtest.Equals(t, int64(3), st.Size())

		rtest.Code(t, -2, p.Unlink("missing.txt"))
		if verbose {
			rtest.Assert(t, strings.Contains(stderr.String(), "missing.txt"), "error not reported: %q", stderr.String())
		} else {
			rtest.Equals(t, "", stderr.String())
		}
	}
}

func TestCallStats(t *testing.T) {
	mem := fs.NewMemFS(`C:`)
	rtest.OK(t, mem.WriteFile(`C:\file.txt`, 3))

	opts := Options{Jobs: 1, Sys: mem, Stderr: &bytes.Buffer{}}
	rtest.OK(t, opts.PreRun(notChanged))
	rtest.Assert(t, opts.track == nil || debug.Enabled(), "calls tracked without --call-stats")

	opts = Options{Jobs: 1, Sys: mem, Stderr: &bytes.Buffer{}, callStats: true}
	rtest.OK(t, opts.PreRun(notChanged))
	rtest.Assert(t, opts.track != nil, "--call-stats did not enable tracking")

	p := opts.POSIX()
	_, err := p.Stat(`C:\file.txt`)
	rtest.OK(t, err)
	rtest.Code(t, -2, p.Unlink(`C:\missing.txt`))

	calls := make(map[string]int)
	failures := 0
	for _, st := range opts.track.Stats() {
		calls[st.Op] = st.Calls
		failures += st.Failures
	}
	rtest.Equals(t, 1, calls["FindFirstFile"])
	rtest.Equals(t, 1, calls["CreateFile"])
	rtest.Equals(t, 1, calls["GetFileInformationByHandle"])
	rtest.Equals(t, 1, calls["DeleteFile"])
	rtest.Equals(t, 1, failures)

	opts.LogCallStats()
}
