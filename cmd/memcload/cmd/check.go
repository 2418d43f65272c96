package cmd

import (
	"github.com/spf13/cobra"

	"github.com/G-Research/memcload/internal/common"
	"github.com/G-Research/memcload/internal/memcload"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [line...]",
		Short: "Encode and decode lines without touching any cache",
		Long: `Parse each tab separated line, encode it the way load would and decode it again.
Built in sample lines are used when none are given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			common.ConfigureCommandLineLogging()
			lines := args
			if len(lines) == 0 {
				lines = memcload.CheckLines
			}
			return memcload.Check(lines)
		},
	}
	return cmd
}
