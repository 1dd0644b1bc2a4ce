package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/config"
	"github.com/Ning0612/typnote/internal/logger"
	"github.com/Ning0612/typnote/internal/service"
	"github.com/Ning0612/typnote/internal/workspace"
)

// Execute runs typnote with args and always releases the service and logger
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var svc *service.WorkspaceService
	defer func() {
		if svc != nil {
			if err := svc.Close(); err != nil {
				fmt.Fprintf(stderr, "warning: %v\n", err)
			}
		}
		logger.Shutdown()
	}()

	rootCmd := NewRootCmd(&svc)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// NewRootCmd builds the typnote command tree. svc is created before any
// subcommand runs; the caller closes it.
func NewRootCmd(svc **service.WorkspaceService) *cobra.Command {
	var (
		configPath    string
		logLevel      string
		dataDir       string
		spaceOverride string
	)

	rootCmd := &cobra.Command{
		Use:           "typnote",
		Short:         "Manage typnote workspaces from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if dataDir != "" {
				cfg.DataDir = config.ExpandPath(dataDir)
			}

			// a previous run in this process may not have shut down
			logger.Shutdown()
			logCfg := cfg.LoggerConfig()
			logCfg.Outputs[0].Writer = cmd.ErrOrStderr()
			if err := logger.Init(logCfg); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			s, err := service.NewWorkspaceService(cfg, printNotifier(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("initialize service: %w", err)
			}
			*svc = s
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search ./config.yaml, ~/.config/typnote)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding settings, history and locks")
	rootCmd.PersistentFlags().StringVarP(&spaceOverride, "space", "s", "", "Space to operate on instead of the last active one")

	rootCmd.AddCommand(NewSpaceCmd(svc))
	rootCmd.AddCommand(NewTreeCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewNewCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewRenameCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewDeleteCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewDuplicateCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewFavoriteCmd(svc))
	rootCmd.AddCommand(NewUserCmd(svc))
	rootCmd.AddCommand(NewWatchCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewHistoryCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewLockCmd(svc, &spaceOverride))
	rootCmd.AddCommand(NewConfigCmd(svc))

	return rootCmd
}

// printNotifier writes one line per notification, the terminal's toast
func printNotifier(w io.Writer) workspace.Notifier {
	return workspace.NotifierFunc(func(n workspace.Notification) {
		mark := "✓"
		if n.Level == workspace.LevelError {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	})
}
