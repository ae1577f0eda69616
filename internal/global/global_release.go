//go:build !debug && !profile

package global

import "github.com/spf13/cobra"

func RegisterProfiling(_ *cobra.Command, _ *Options) {
	// No profiling in release mode
}
