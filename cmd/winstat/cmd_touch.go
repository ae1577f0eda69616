package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/global"
	"github.com/restic/winposix/posix"
)

func newTouchCommand(globalOptions *global.Options) *cobra.Command {
	var opts TouchOptions

	cmd := &cobra.Command{
		Use:   "touch [flags] path [path...]",
		Short: "Set access and modification times",
		Long: `
The "touch" command sets the access and modification times of existing files.
Times are given as seconds since the Unix epoch with an optional fraction,
e.g. "1700000000.5", or as "now" or "omit". A time that is not given is set
to the current time; "omit" leaves it unchanged. Windows stores times with a
resolution of 100ns, finer fractions are truncated.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTouch(cmd.Context(), opts, *globalOptions, args)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// TouchOptions collects all options for the touch command.
type TouchOptions struct {
	Atime    string
	Mtime    string
	NoFollow bool
}

func (opts *TouchOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.Atime, "atime", "", "set the access time to `time` (seconds[.fraction], now or omit)")
	f.StringVar(&opts.Mtime, "mtime", "", "set the modification time to `time` (seconds[.fraction], now or omit)")
	f.BoolVar(&opts.NoFollow, "no-follow", false, "change the times of symlinks instead of their targets")
}

func runTouch(ctx context.Context, opts TouchOptions, gopts global.Options, args []string) error {
	atime, err := parseTimespec(opts.Atime)
	if err != nil {
		return errors.Fatalf("invalid --atime: %v", err)
	}
	mtime, err := parseTimespec(opts.Mtime)
	if err != nil {
		return errors.Fatalf("invalid --mtime: %v", err)
	}

	var flags int
	if opts.NoFollow {
		flags = posix.AT_SYMLINK_NOFOLLOW
	}

	p := gopts.POSIX()
	failed := false
	for _, name := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if code := p.Utimensat(posix.AT_FDCWD, name, atime, mtime, flags); code != 0 {
			warnFailure(gopts, "touch %v: %v\n", name, p.LastError())
			failed = true
		}
	}

	if failed {
		return ErrPartialFailure
	}
	return nil
}

// parseTimespec parses "seconds[.fraction]", "now" and "omit". An empty
// string yields nil, which means the current time.
func parseTimespec(s string) (*posix.Timespec, error) {
	switch s {
	case "":
		return nil, nil
	case "now":
		return &posix.Timespec{Nsec: posix.UTIME_NOW}, nil
	case "omit":
		return &posix.Timespec{Nsec: posix.UTIME_OMIT}, nil
	}

	secStr, fracStr, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(secStr, "-")

	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return nil, errors.Errorf("invalid seconds in %q", s)
	}

	var nsec int64
	if hasFrac {
		if fracStr == "" || len(fracStr) > 9 || strings.Trim(fracStr, "0123456789") != "" {
			return nil, errors.Errorf("invalid fraction in %q", s)
		}
		nsec, err = strconv.ParseInt(fracStr+strings.Repeat("0", 9-len(fracStr)), 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "fraction")
		}
	}

	// -1.25 is 1.25 seconds before the epoch
	if neg && nsec > 0 {
		sec--
		nsec = 1e9 - nsec
	}
	return &posix.Timespec{Sec: sec, Nsec: nsec}, nil
}
