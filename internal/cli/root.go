// Package cli wires the annotation engine into a command-line tool: a
// long-running serve mode for editor integration and headless note
// commands for scripts and CI.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Workspace string
	NotesDir  string
	StoreDSN  string
	Branch    string
	Verbose   bool
}

// NewRootCommand creates the root command for the linemark CLI.
func NewRootCommand() *cobra.Command {
	config := LoadConfig()
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linemark",
		Short: "Content-addressed line annotations for source text",
		Long: `linemark attaches persistent notes to individual lines of source text,
keyed by the line's exact content, and renders them inline while the
workspace is on a designated branch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Workspace, "workspace", ".", "workspace root directory")
	cmd.PersistentFlags().StringVar(&opts.NotesDir, "notes-dir", config.NotesDir, "storage subdirectory name (default .linemark)")
	cmd.PersistentFlags().StringVar(&opts.StoreDSN, "store", config.StoreDSN, "note backend DSN (file path, memory://, postgres://)")
	cmd.PersistentFlags().StringVar(&opts.Branch, "branch", config.TargetBranch, "target branch that activates annotations")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts, config))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	return 0
}
