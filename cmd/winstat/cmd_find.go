package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/global"
)

func newFindCommand(globalOptions *global.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [flags] path [path...]",
		Short: "Print metadata from the directory entry of a path",
		Long: `
The "find" command prints the metadata the directory listing holds for each
path, without opening the file. Inode numbers are not available this way and
are reported as 0, the link count as 1. Wildcards are not supported.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), *globalOptions, args)
		},
	}
	return cmd
}

func runFind(ctx context.Context, gopts global.Options, args []string) error {
	p := gopts.POSIX()
	out := p.AllocateStat()

	records := make([]statRecord, 0, len(args))
	for _, name := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := p.FindFirstFile(name, out)
		records = append(records, newStatRecord(name, out, code))
	}

	if err := printRecords(gopts.Stdout, gopts.JSON, records); err != nil {
		return errors.Wrap(err, "print")
	}
	return reportFailures(gopts, records)
}
