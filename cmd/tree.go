package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ning0612/typnote/internal/domain"
	"github.com/Ning0612/typnote/internal/service"
	"github.com/Ning0612/typnote/internal/tree"
)

func NewTreeCmd(svc **service.WorkspaceService, spaceOverride *string) *cobra.Command {
	var (
		asJSON bool
		flat   bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the file tree of a space",
		Long: `Print the file tree of the active space, or the one given with --space.
Entries whose names start with the hidden prefix are left out.

Examples:
  typnote tree
  typnote tree --space Work --json
  typnote tree --flat`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			space, err := openSpace(cmd, s, *spaceOverride)
			if err != nil {
				return err
			}
			entries := s.Tree()
			if flat {
				entries = tree.Flatten(entries)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if flat {
				for _, e := range entries {
					fmt.Fprintln(out, displayPath(space.RootPath, e))
				}
				return nil
			}

			fmt.Fprintf(out, "%s %s\n", space.Icon, space.Name)
			printTree(out, entries, "")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&flat, "flat", false, "One path per line, depth first")
	return cmd
}

func printTree(w io.Writer, entries []domain.Entry, indent string) {
	for i, e := range entries {
		branch, next := "├── ", "│   "
		if i == len(entries)-1 {
			branch, next = "└── ", "    "
		}
		name := e.Name
		if e.IsDirectory() {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, branch, name)
		if e.IsDirectory() {
			printTree(w, e.Children, indent+next)
		}
	}
}

// displayPath shows an entry relative to its space root
func displayPath(root string, e domain.Entry) string {
	rel, err := filepath.Rel(root, e.Path)
	if err != nil {
		rel = e.Path
	}
	rel = filepath.ToSlash(rel)
	if e.IsDirectory() {
		rel += "/"
	}
	return rel
}
