package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/config"
	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/service"
)

func NewSpaceCmd(svc **service.WorkspaceService) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "space",
		Short:   "Manage spaces",
		Aliases: []string{"spaces"},
		Long: `A space is a named root directory shown as a top-level project.

Examples:
  typnote space add Notes ~/notes --icon 📓
  typnote space list
  typnote space use Notes
  typnote space remove Notes`,
	}

	cmd.AddCommand(
		newSpaceAddCmd(svc),
		newSpaceListCmd(svc),
		newSpaceUseCmd(svc),
		newSpaceRemoveCmd(svc),
	)
	return cmd
}

func newSpaceAddCmd(svc **service.WorkspaceService) *cobra.Command {
	var icon string

	cmd := &cobra.Command{
		Use:   "add NAME ROOT",
		Short: "Register a directory as a space",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			space := domain.Space{Name: args[0], Icon: icon, RootPath: config.ExpandPath(args[1])}
			if err := s.Settings().AddSpace(space); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added space %s (%s)\n", space.Name, space.RootPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "Emoji shown next to the space name")
	return cmd
}

func newSpaceListCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List registered spaces",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			spaces, err := s.Settings().Spaces()
			if err != nil {
				return err
			}
			if len(spaces) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No spaces registered. Add one with 'typnote space add NAME ROOT'.")
				return nil
			}

			active := -1
			if _, idx, err := s.Settings().ActiveSpace(); err == nil {
				active = idx
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for i, sp := range spaces {
				mark := " "
				if i == active {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %s %s\t%s\n", mark, sp.Icon, sp.Name, sp.RootPath)
			}
			return w.Flush()
		},
	}
}

func newSpaceUseCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make a space the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			idx, err := s.Settings().SpaceIndex(args[0])
			if err != nil {
				return err
			}
			if err := s.Settings().SetLastActive(idx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", args[0])
			return nil
		},
	}
}

func newSpaceRemoveCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Short:   "Unregister a space; its files are left alone",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Settings().RemoveSpace(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed space %s\n", args[0])
			return nil
		},
	}
}
