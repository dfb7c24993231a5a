package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gmvsync/internal/core"
)

func newFoldersCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List import folders, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			folders, err := core.ListFolders(cfg.Source.BaseFolder)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(folders)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODIFIED\tDATA")
			for _, f := range folders {
				data := "yes"
				if !f.HasData {
					data = "missing"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Modified.Format("2006-01-02 15:04"), data)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the folders as JSON")
	return cmd
}
