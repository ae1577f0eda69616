package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/restic/winposix/internal/global"
)

func newRmCommand(globalOptions *global.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm [flags] path [path...]",
		Short: "Remove files",
		Long: `
The "rm" command removes files. Files that are open in another process
without delete sharing cannot be removed.

EXIT STATUS
===========

Exit status is 0 if the command was successful.
Exit status is 1 if there was any error.
`,
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd.Context(), *globalOptions, args)
		},
	}
	return cmd
}

func runRm(ctx context.Context, gopts global.Options, args []string) error {
	p := gopts.POSIX()

	failed := false
	for _, name := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if code := p.Unlink(name); code != 0 {
			warnFailure(gopts, "rm %v: %v\n", name, p.LastError())
			failed = true
			continue
		}
		gopts.Verbosef("removed %v\n", name)
	}

	if failed {
		return ErrPartialFailure
	}
	return nil
}
