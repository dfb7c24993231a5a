package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gmvsync/internal/core"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <folder>",
		Short: "Import one folder synchronously",
		Long: `Import one folder synchronously.

<folder> is the name of an import folder below the base folder or a path
to an import folder. Per-record problems are written to the run log inside
the folder; the command fails only when the run aborts.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, runErr := a.service.RunNow(cmd.Context(), args[0], core.TriggerCLI)
			if rec.ID != "" {
				if asJSON {
					if err := writeJSON(rec); err != nil {
						return err
					}
				} else {
					printRun(rec)
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run record as JSON")
	return cmd
}

// printRun prints the per-phase counts of a run.
func printRun(rec core.RunRecord) {
	fmt.Printf("run %s: %s (%s)\n", rec.ID, rec.Status, rec.Folder)
	if rec.Summary == nil {
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tcreated\tupdated\tunchanged\tfailed\tskipped\t")
	for _, p := range rec.Summary.Phases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t\n", p.Phase, p.Created, p.Updated, p.Unchanged, p.Failed, p.Skipped)
	}
	t := rec.Summary.Total()
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\t%d\t\n", t.Created, t.Updated, t.Unchanged, t.Failed, t.Skipped)
	tw.Flush()

	if rec.LogPath != "" {
		fmt.Printf("log: %s\n", rec.LogPath)
	}
}
