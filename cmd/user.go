package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/service"
)

func NewUserCmd(svc **service.WorkspaceService) *cobra.Command {
	var (
		name   string
		email  string
		avatar string
	)

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or edit the local profile",
		Long: `Show the local profile. Any of --name, --email or --avatar updates it.

Examples:
  typnote user
  typnote user --name Ada --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			user, err := s.Settings().User()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") || flags.Changed("email") || flags.Changed("avatar") {
				if flags.Changed("name") {
					user.Name = name
				}
				if flags.Changed("email") {
					user.Email = email
				}
				if flags.Changed("avatar") {
					user.Avatar = avatar
				}
				if err := s.Settings().SetUser(user); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:   %s\n", user.Name)
			fmt.Fprintf(out, "Email:  %s\n", user.Email)
			fmt.Fprintf(out, "Avatar: %s\n", user.Avatar)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar image path or URL")
	return cmd
}
