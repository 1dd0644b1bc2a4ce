package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/service"
)

func NewLockCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the lock that serializes edits to a space",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show who holds the lock",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s := *svc
				if _, err := openSpace(cmd, s, *spaceOverride); err != nil {
					return err
				}
				holder, err := s.LockHolder()
				if err != nil {
					return err
				}
				if holder == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Not locked")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Locked by PID %d on %s since %s (%s)\n",
					holder.PID, holder.Hostname, holder.StartTime.Local().Format(time.DateTime), holder.Op)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the lock left behind by a crashed process",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s := *svc
				if _, err := openSpace(cmd, s, *spaceOverride); err != nil {
					return err
				}
				if err := s.ForceUnlock(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Lock cleared")
				return nil
			},
		},
	)
	return cmd
}
