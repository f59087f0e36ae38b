package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradescribe/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directories the pipeline depends on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckSystemDeps(cfg)
			statuses = append(statuses,
				deps.CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
				deps.CheckDirectoryAccess("Analysis directory", cfg.Paths.AnalysisDir),
				deps.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
			)
			if cfg.Speech.MinFreeSpaceGiB > 0 {
				statuses = append(statuses,
					deps.CheckFreeSpace("Work area space", cfg.Paths.WorkDir, float64(cfg.Speech.MinFreeSpaceGiB)))
			}

			if jsonOutput {
				return writeJSON(cmd, statuses)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}

			allOK := true
			for _, status := range statuses {
				kind := statusOK
				message := status.Detail
				if message == "" {
					message = status.Command
				}
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					} else {
						allOK = false
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			if !allOK {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderStatusLine("Note", statusInfo,
					"missing tools only matter when a video needs the speech fallback", colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit dependency status as JSON")
	return cmd
}
