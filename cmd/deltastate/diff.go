package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/qri-io/deltastate"
	"github.com/qri-io/deltastate/internal/snapshot"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the patches that turn snapshot OLD into NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			b, err := snapshot.Load(args[1])
			if err != nil {
				return err
			}

			stats := &deltastate.Stats{}
			patches := deltastate.Diff(a, b, deltastate.OptionSetStats(stats))
			getLogger(cmd).WithField("patches", len(patches)).Debug("diff complete")

			out := cmd.OutOrStdout()
			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				if patches == nil {
					patches = deltastate.Patches{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(patches)
			}

			color := isTerminal(out)
			if err := deltastate.FormatPretty(out, patches, color); err != nil {
				return err
			}
			if showStats {
				if color {
					_, err = io.WriteString(out, deltastate.FormatPrettyStatsColor(stats))
				} else {
					_, err = io.WriteString(out, deltastate.FormatPrettyStats(stats))
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "Print a summary line after the patches")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
