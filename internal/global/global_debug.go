//go:build debug || profile

package global

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/restic/winposix/internal/errors"
)

// RegisterProfiling adds the profiling flags to cmd. Profiles and the Win32
// call statistics are written when the command finishes, even if it fails.
func RegisterProfiling(cmd *cobra.Command, gopts *Options) {
	var p profiler
	p.opts.AddFlags(cmd.PersistentFlags())

	origPreRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		gopts.callStats = p.opts.callStats
		if origPreRun != nil {
			if err := origPreRun(cmd, args); err != nil {
				return err
			}
		}
		return p.start(gopts)
	}

	// PersistentPostRunE is skipped when a command fails
	cobra.OnFinalize(func() {
		p.finish(gopts)
	})
}

type profileOptions struct {
	listen    string
	memPath   string
	cpuPath   string
	tracePath string
	blockPath string
	callStats bool
}

func (opts *profileOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.listen, "listen-profile", "", "listen on this `address:port` for memory profiling")
	f.StringVar(&opts.memPath, "mem-profile", "", "write memory profile to `dir`")
	f.StringVar(&opts.cpuPath, "cpu-profile", "", "write cpu profile to `dir`")
	f.StringVar(&opts.tracePath, "trace-profile", "", "write trace to `dir`")
	f.StringVar(&opts.blockPath, "block-profile", "", "write block profile to `dir`")
	f.BoolVar(&opts.callStats, "call-stats", false, "print the number and duration of Win32 calls per operation when done")
}

// mode returns the selected profile mode and its output directory.
func (opts *profileOptions) mode() (func(*profile.Profile), string, error) {
	var (
		mode func(*profile.Profile)
		dir  string
	)
	for _, m := range []struct {
		dir  string
		mode func(*profile.Profile)
	}{
		{opts.memPath, profile.MemProfile},
		{opts.cpuPath, profile.CPUProfile},
		{opts.tracePath, profile.TraceProfile},
		{opts.blockPath, profile.BlockProfile},
	} {
		if m.dir == "" {
			continue
		}
		if mode != nil {
			return nil, "", errors.Fatal("only one profile (memory, CPU, trace, or block) may be activated at the same time")
		}
		mode, dir = m.mode, m.dir
	}
	return mode, dir, nil
}

type profiler struct {
	opts profileOptions
	stop interface {
		Stop()
	}
}

func (p *profiler) start(gopts *Options) error {
	if p.opts.listen != "" {
		gopts.Warnf("running profile HTTP server on %v\n", p.opts.listen)
		go func() {
			err := http.ListenAndServe(p.opts.listen, nil)
			if err != nil {
				gopts.Warnf("profile HTTP server listen failed: %v\n", err)
			}
		}()
	}

	mode, dir, err := p.opts.mode()
	if err != nil {
		return err
	}
	if mode != nil {
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, mode, profile.ProfilePath(dir))
	}
	return nil
}

func (p *profiler) finish(gopts *Options) {
	if p.stop != nil {
		p.stop.Stop()
	}

	if gopts.callStats && gopts.track != nil {
		if err := gopts.track.WriteStats(gopts.stderr()); err != nil {
			_, _ = fmt.Fprintf(gopts.stderr(), "writing call statistics failed: %v\n", err)
		}
	}
}
