// Package global holds the options shared by all winstat commands.
package global

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/spf13/pflag"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/fs"
	"github.com/restic/winposix/posix"
)

// Options hold all global options for winstat.
type Options struct {
	Verbose         bool
	JSON            bool
	Jobs            int
	BackupPrivilege bool

	Stdout io.Writer
	Stderr io.Writer

	// Sys replaces the Win32 layer, WorkingDir the working directory
	// relative paths are resolved against. Both are used by tests.
	Sys        fs.Win32
	WorkingDir string

	// callStats is set by --call-stats in debug builds
	callStats bool
	track     *fs.Track
}

// AddFlags adds the global flags to f.
func (opts *Options) AddFlags(f *pflag.FlagSet) {
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "report fallbacks and failed calls on stderr (default: $WINPOSIX_VERBOSE)")
	f.BoolVar(&opts.JSON, "json", false, "print records as JSON lines instead of a table")
	f.IntVar(&opts.Jobs, "jobs", runtime.GOMAXPROCS(0), "query up to `n` paths in parallel")
	f.BoolVar(&opts.BackupPrivilege, "backup-privilege", false, "enable SeBackupPrivilege to read metadata of protected files (Windows only)")
}

// PreRun applies environment defaults and validates the options. changed
// reports whether a flag was set on the command line.
func (opts *Options) PreRun(changed func(name string) bool) error {
	if !changed("verbose") {
		if v, ok := os.LookupEnv("WINPOSIX_VERBOSE"); ok && v != "" {
			verbose, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Fatalf("invalid value %q for $WINPOSIX_VERBOSE: %v", v, err)
			}
			opts.Verbose = verbose
		}
	}

	if opts.Jobs < 1 {
		return errors.Fatalf("--jobs must be at least 1, got %d", opts.Jobs)
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.Sys == nil {
		opts.Sys = fs.Local{}
	}
	if opts.callStats || debug.Enabled() {
		opts.track = fs.NewTrack(opts.Sys)
	}

	if opts.BackupPrivilege {
		debug.Log("enabling backup privilege")
		if err := enableBackupPrivilege(); err != nil {
			return err
		}
	}
	return nil
}

// Warnf writes the message to the configured stderr stream.
func (opts Options) Warnf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(opts.stderr(), format, args...)
}

// Verbosef writes the message to stderr if --verbose is set.
func (opts Options) Verbosef(format string, args ...interface{}) {
	if opts.Verbose {
		opts.Warnf(format, args...)
	}
}

func (opts Options) stderr() io.Writer {
	if opts.Stderr == nil {
		return os.Stderr
	}
	return opts.Stderr
}

// POSIX returns the emulation layer configured by opts. Calls are counted
// if --call-stats is set or the debug log is enabled.
func (opts Options) POSIX() *posix.POSIX {
	h := &Handler{opts: opts}
	switch {
	case opts.track != nil:
		return posix.New(h, posix.WithSys(opts.track))
	case opts.Sys != nil:
		return posix.New(h, posix.WithSys(opts.Sys))
	}
	return posix.New(h)
}

// LogCallStats writes the Win32 call statistics to the debug log.
func (opts Options) LogCallStats() {
	if opts.track == nil {
		return
	}
	for _, st := range opts.track.Stats() {
		debug.Log("%v: %d calls, %d failed, %v", st.Op, st.Calls, st.Failures, st.Duration)
	}
}

// Handler reports diagnostics of the emulation layer on stderr.
type Handler struct {
	opts Options
	m    sync.Mutex
}

var _ posix.Handler = &Handler{}

func (h *Handler) Warn(format string, args ...any) {
	if !h.opts.Verbose {
		return
	}
	h.m.Lock()
	defer h.m.Unlock()
	h.opts.Warnf("Warning: "+format+"\n", args...)
}

func (h *Handler) Error(kind posix.Kind, msg string) {
	if !h.opts.Verbose {
		return
	}
	h.m.Lock()
	defer h.m.Unlock()
	h.opts.Warnf("%v (%v)\n", msg, kind)
}

func (h *Handler) IsVerbose() bool {
	return h.opts.Verbose
}

func (h *Handler) Getwd() (string, error) {
	if h.opts.WorkingDir != "" {
		return h.opts.WorkingDir, nil
	}
	return os.Getwd()
}
