package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/service"
)

func NewHistoryCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent file operations",
		Long: `Show the most recent create, rename, delete and duplicate operations on
the active space, newest first. --all includes every space.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if !all {
				if _, err := openSpace(cmd, s, *spaceOverride); err != nil {
					return err
				}
			}

			records, err := s.History(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No operations recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOPERATION\tSTATUS\tPATH\tDETAIL")
			for _, r := range records {
				detail := r.Result
				if r.Error != "" {
					detail = r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Timestamp.Local().Format(time.DateTime), r.Op, r.Status, r.Path, detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of operations to show")
	cmd.Flags().BoolVar(&all, "all", false, "Include operations on every space")
	return cmd
}
