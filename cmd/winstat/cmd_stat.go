package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/global"
)

func newStatCommand(globalOptions *global.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat [flags] path [path...]",
		Short: "Print file metadata, following symlinks",
		Long: `
The "stat" command prints the metadata of each path as stat(2) would report
it: device, inode (file index), mode, link count, size and times.

Paths are queried in parallel, see --jobs.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat(cmd.Context(), *globalOptions, args, true)
		},
	}
	return cmd
}

func newLstatCommand(globalOptions *global.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lstat [flags] path [path...]",
		Short: "Print file metadata without following symlinks",
		Long: `
The "lstat" command is like "stat", but describes symlinks themselves instead
of their targets.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat(cmd.Context(), *globalOptions, args, false)
		},
	}
	return cmd
}

func runStat(ctx context.Context, gopts global.Options, args []string, follow bool) error {
	p := gopts.POSIX()
	records := make([]statRecord, len(args))

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(gopts.Jobs)
	for i, name := range args {
		wg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			st := p.AllocateStat()
			var code int
			if follow {
				code = p.StatInto(name, st)
			} else {
				code = p.LstatInto(name, st)
			}
			records[i] = newStatRecord(name, st, code)
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return err
	}

	if err := printRecords(gopts.Stdout, gopts.JSON, records); err != nil {
		return errors.Wrap(err, "print")
	}
	return reportFailures(gopts, records)
}

// reportFailures prints the failed records to stderr.
func reportFailures(gopts global.Options, records []statRecord) error {
	failed := 0
	for _, rec := range records {
		if rec.Code == 0 {
			continue
		}
		failed++
		debug.Log("%v failed with %d: %v", rec.Path, rec.Code, rec.Error)
		if !gopts.JSON {
			warnFailure(gopts, "%v: %v\n", rec.Path, rec.Error)
		}
	}

	if failed > 0 {
		return ErrPartialFailure
	}
	return nil
}

// warnFailure prints a failed path to stderr. With --verbose the handler has
// already reported it.
func warnFailure(gopts global.Options, format string, args ...interface{}) {
	if !gopts.Verbose {
		gopts.Warnf(format, args...)
	}
}
