package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/daemon"
	"github.com/Ning0612/typnote/internal/service"
	"github.com/Ning0612/typnote/internal/tree"
)

func NewWatchCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to a space until interrupted",
		Long: `Watch the active space and print every added, removed or retyped entry.
Set watch.poll_interval in the config to also rescan periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			space, err := openSpace(cmd, s, *spaceOverride)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (%s), Ctrl+C to stop\n", space.Name, space.RootPath)
			return s.Watch(ctx, func(c tree.Changes) {
				printChanges(out, space.RootPath, c)
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether a watcher is running for the space",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				pidFile, err := openWatchPID(cmd, *svc, *spaceOverride)
				if err != nil {
					return err
				}
				pid, err := pidFile.Read()
				running := err == nil && isRunning(pidFile)
				if !running {
					fmt.Fprintln(cmd.OutOrStdout(), "No watcher running")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Watcher running (PID %d)\n", pid)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the watcher running for the space",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				pidFile, err := openWatchPID(cmd, *svc, *spaceOverride)
				if err != nil {
					return err
				}
				if err := pidFile.Stop(); err != nil {
					if errors.Is(err, daemon.ErrNotRunning) {
						fmt.Fprintln(cmd.OutOrStdout(), "No watcher running")
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped")
				return nil
			},
		},
	)
	return cmd
}

func openWatchPID(cmd *cobra.Command, s *service.WorkspaceService, spaceOverride string) (*daemon.PIDFile, error) {
	if _, err := openSpace(cmd, s, spaceOverride); err != nil {
		return nil, err
	}
	return s.WatchPIDFile()
}

func isRunning(p *daemon.PIDFile) bool {
	running, err := p.IsRunning()
	return err == nil && running
}

func printChanges(w io.Writer, root string, c tree.Changes) {
	rel := func(p string) string {
		if r, err := filepath.Rel(root, p); err == nil {
			return filepath.ToSlash(r)
		}
		return p
	}
	for _, p := range c.Added {
		fmt.Fprintf(w, "+ %s\n", rel(p))
	}
	for _, p := range c.Removed {
		fmt.Fprintf(w, "- %s\n", rel(p))
	}
	for _, p := range c.Retyped {
		fmt.Fprintf(w, "~ %s\n", rel(p))
	}
}
