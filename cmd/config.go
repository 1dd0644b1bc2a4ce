package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/service"
)

func NewConfigCmd(svc **service.WorkspaceService) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, TYPNOTE_*
environment variables and command-line flags have been applied.
The output is valid config.yaml content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return (*svc).Config().WriteYAML(cmd.OutOrStdout())
		},
	}
}
