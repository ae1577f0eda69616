package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/restic/winposix/internal/debug"
	"github.com/restic/winposix/internal/errors"
	"github.com/restic/winposix/internal/global"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

var version = "0.1.0-dev (compiled manually)"

// ErrPartialFailure is returned when at least one path could not be processed.
var ErrPartialFailure = errors.New("at least one path could not be processed")

func newRootCommand(globalOptions *global.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "winstat",
		Short: "Query and modify file metadata the POSIX way on Windows",
		Long: `
winstat reports file metadata the way stat(2) does on POSIX systems, for
drive letter paths, UNC shares and paths longer than MAX_PATH. It can also
set file times and remove files.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return globalOptions.PreRun(func(name string) bool {
				return c.Flags().Changed(name)
			})
		},
	}

	globalOptions.AddFlags(cmd.PersistentFlags())

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(
		newStatCommand(globalOptions),
		newLstatCommand(globalOptions),
		newFindCommand(globalOptions),
		newTouchCommand(globalOptions),
		newRmCommand(globalOptions),
		newVersionCommand(globalOptions),
	)

	global.RegisterProfiling(cmd, globalOptions)

	return cmd
}

func printExitError(gopts global.Options, code int, message string) {
	if gopts.JSON {
		type jsonExitError struct {
			MessageType string `json:"message_type"` // exit_error
			Code        int    `json:"code"`
			Message     string `json:"message"`
		}

		jsonS := jsonExitError{
			MessageType: "exit_error",
			Code:        code,
			Message:     message,
		}

		err := json.NewEncoder(os.Stderr).Encode(jsonS)
		if err != nil {
			gopts.Warnf("JSON encode failed: %v\n", err)
			return
		}
	} else {
		gopts.Warnf("%v\n", message)
	}
}

func main() {
	// install custom global logger into a buffer, if an error occurs
	// we can show the logs
	logBuffer := bytes.NewBuffer(nil)
	log.SetOutput(logBuffer)

	debug.Log("main %#v", os.Args)
	debug.Log("winstat %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	var gopts global.Options
	ctx := createGlobalContext(&gopts)
	err := newRootCommand(&gopts).ExecuteContext(ctx)
	gopts.LogCallStats()

	if err == nil {
		err = ctx.Err()
	}

	var exitMessage string
	switch {
	case errors.Is(err, ErrPartialFailure):
		exitMessage = fmt.Sprintf("Warning: %v", err)
	case errors.IsFatal(err):
		exitMessage = err.Error()
	case err != nil:
		exitMessage = fmt.Sprintf("%+v", err)

		if logBuffer.Len() > 0 {
			exitMessage += "also, the following messages were logged by a library:\n"
			sc := bufio.NewScanner(logBuffer)
			for sc.Scan() {
				exitMessage += fmt.Sprintln(sc.Text())
			}
		}
	}

	var exitCode int
	switch {
	case err == nil:
		exitCode = 0
	case errors.Is(err, context.Canceled):
		exitCode = 130
	default:
		exitCode = 1
	}

	if exitCode != 0 {
		printExitError(gopts, exitCode, exitMessage)
	}
	Exit(exitCode)
}
