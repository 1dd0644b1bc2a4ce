package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/lock"
	"github.com/Ning0612/typnote/internal/progress"
	"github.com/Ning0612/typnote/internal/service"
)

// ErrReported marks an error the user has already seen as a notification
var ErrReported = errors.New("already reported")

type reportedError struct{ err error }

func (e *reportedError) Error() string   { return e.err.Error() }
func (e *reportedError) Unwrap() []error { return []error{e.err, ErrReported} }

// reported marks mutation errors; lock conflicts never reach the session,
// so they are left for the caller to print
func reported(err error) error {
	if err == nil || lock.IsLockError(err) {
		return err
	}
	return &reportedError{err: err}
}

// openSpace opens the target space. A space that was found but failed to
// load has already been shown by the session, so that error is marked.
func openSpace(cmd *cobra.Command, s *service.WorkspaceService, spaceOverride string) (domain.Space, error) {
	space, err := s.Open(cmd.Context(), spaceOverride)
	if err != nil && space != (domain.Space{}) {
		return space, reported(err)
	}
	return space, err
}

// openAndResolve opens the target space and resolves path against its root
func openAndResolve(cmd *cobra.Command, s *service.WorkspaceService, spaceOverride, path string) (string, error) {
	if _, err := openSpace(cmd, s, spaceOverride); err != nil {
		return "", err
	}
	return s.Resolve(path)
}

func NewNewCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a file or folder with a generated name",
		Long: `Create "New File <timestamp>.typ" or "New Folder <timestamp>" inside DIR,
which is relative to the space root. Without DIR the root is used.

Examples:
  typnote new file
  typnote new folder chapters`,
	}

	cmd.AddCommand(
		newCreateCmd(svc, spaceOverride, "file", func(s *service.WorkspaceService, cmd *cobra.Command, dir string) (string, error) {
			return s.CreateFile(cmd.Context(), dir)
		}),
		newCreateCmd(svc, spaceOverride, "folder", func(s *service.WorkspaceService, cmd *cobra.Command, dir string) (string, error) {
			return s.CreateFolder(cmd.Context(), dir)
		}),
	)
	return cmd
}

func newCreateCmd(svc **service.WorkspaceService, spaceOverride *string, kind string,
	create func(*service.WorkspaceService, *cobra.Command, string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " [DIR]",
		Short: "Create a new " + kind,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			var rel string
			if len(args) > 0 {
				rel = args[0]
			}
			dir, err := openAndResolve(cmd, s, *spaceOverride, rel)
			if err != nil {
				return err
			}
			created, err := create(s, cmd, dir)
			if err != nil {
				return reported(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), created)
			return nil
		},
	}
}

func NewRenameCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	return &cobra.Command{
		Use:     "rename PATH NEWNAME",
		Short:   "Rename a file or folder in place",
		Aliases: []string{"mv"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			path, err := openAndResolve(cmd, s, *spaceOverride, args[0])
			if err != nil {
				return err
			}
			dest, err := s.Rename(cmd.Context(), path, args[1])
			if err != nil {
				return reported(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
}

func NewDeleteCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete PATH",
		Short:   "Delete a file, or a folder with everything in it",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			path, err := openAndResolve(cmd, s, *spaceOverride, args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? This cannot be undone. [y/N] ", args[0])
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.ToLower(strings.TrimSpace(response)) != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			if err := s.Delete(cmd.Context(), path); err != nil {
				return reported(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func NewDuplicateCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:     "duplicate PATH",
		Short:   "Copy a file or folder next to itself with a _copy suffix",
		Aliases: []string{"dup"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			path, err := openAndResolve(cmd, s, *spaceOverride, args[0])
			if err != nil {
				return err
			}
			if showProgress {
				s.SetCopyReporter(copyPrinter(cmd.ErrOrStderr(), path))
			}
			dest, err := s.Duplicate(cmd.Context(), path)
			if err != nil {
				return reported(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "Print each file as it is copied")
	return cmd
}

// copyPrinter prints one line per copied file relative to the duplicated entry
func copyPrinter(w io.Writer, base string) progress.Reporter {
	parent := filepath.Dir(base)
	return progress.NewCallbackReporter(func(u progress.Update) {
		rel, err := filepath.Rel(parent, u.CurrentFile)
		if err != nil {
			rel = u.CurrentFile
		}
		switch u.Type {
		case progress.UpdateComplete:
			fmt.Fprintf(w, "  copied %s (%s)\n", filepath.ToSlash(rel), progress.FormatBytes(u.CurrentTotal))
		case progress.UpdateError:
			fmt.Fprintf(w, "  failed %s: %v\n", filepath.ToSlash(rel), u.Error)
		}
	})
}
