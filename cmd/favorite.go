package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/service"
)

func NewFavoriteCmd(svc **service.WorkspaceService) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorite",
		Short:   "Manage pinned documents",
		Aliases: []string{"fav"},
	}

	cmd.AddCommand(
		newFavoriteAddCmd(svc),
		newFavoriteRemoveCmd(svc),
		newFavoriteListCmd(svc),
	)
	return cmd
}

func newFavoriteAddCmd(svc **service.WorkspaceService) *cobra.Command {
	var emoji string

	cmd := &cobra.Command{
		Use:   "add NAME PATH",
		Short: "Pin a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			fav := domain.Favorite{Name: args[0], Path: args[1], Emoji: emoji}
			if err := s.Settings().AddFavorite(fav); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", fav.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&emoji, "emoji", "", "Emoji shown next to the favorite")
	return cmd
}

func newFavoriteRemoveCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Short:   "Unpin a document",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := s.Settings().RemoveFavorite(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", args[0])
			return nil
		},
	}
}

func newFavoriteListCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List pinned documents",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			favs, err := s.Settings().Favorites()
			if err != nil {
				return err
			}
			if len(favs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, f := range favs {
				fmt.Fprintf(w, "%s %s\t%s\n", f.Emoji, f.Name, f.Path)
			}
			return w.Flush()
		},
	}
}
