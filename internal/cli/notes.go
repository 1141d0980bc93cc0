package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/annotext/linemark/internal/linemark"
)

// openBackend resolves the note backend for headless commands: an
// explicit --store DSN wins, otherwise the workspace's note directory.
func openBackend(opts *RootOptions) (linemark.Backend, error) {
	if strings.TrimSpace(opts.StoreDSN) != "" {
		return linemark.BuildBackendFromDSN(opts.StoreDSN)
	}
	notesDir := opts.NotesDir
	if notesDir == "" {
		notesDir = linemark.DefaultNotesDir
	}
	return linemark.NewDirStore(filepath.Join(opts.Workspace, notesDir)), nil
}

// resolveLine reads the exact text of a 1-based line from a file on disk.
func resolveLine(path string, lineNo int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if lineNo < 1 || lineNo > len(lines) {
		return "", fmt.Errorf("%s has %d lines, no line %d", path, len(lines), lineNo)
	}
	return strings.TrimSuffix(lines[lineNo-1], "\r"), nil
}

func parseFileLineArgs(args []string) (string, int, error) {
	lineNo, err := strconv.Atoi(args[1])
	if err != nil || lineNo < 1 {
		return "", 0, fmt.Errorf("invalid line number %q", args[1])
	}
	return args[0], lineNo, nil
}

// NewAddCommand creates a note for a line, or reports the existing one.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file> <line>",
		Short: "Annotate a line of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, lineNo, err := parseFileLineArgs(args)
			if err != nil {
				return err
			}
			text, err := resolveLine(path, lineNo)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("line %d of %s is blank, nothing to annotate", lineNo, path)
			}

			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer backend.Close()
			if err := backend.EnsureRoot(); err != nil {
				return err
			}

			id := linemark.HashLine(text)
			if _, err := backend.Read(id); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "note exists: %s\n", id)
				return nil
			} else if !errors.Is(err, linemark.ErrNotFound) {
				return err
			}
			if err := backend.Write(id, linemark.DefaultTemplate(lineNo-1)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created note: %s\n", id)
			return nil
		},
	}
}

// NewShowCommand prints the note attached to a line.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> <line>",
		Short: "Show the note attached to a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, lineNo, err := parseFileLineArgs(args)
			if err != nil {
				return err
			}
			text, err := resolveLine(path, lineNo)
			if err != nil {
				return err
			}
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			content, err := backend.Read(linemark.HashLine(text))
			if errors.Is(err, linemark.ErrNotFound) {
				return fmt.Errorf("no note for %s:%d", path, lineNo)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}

// NewRemoveCommand deletes the note attached to a line.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file> <line>",
		Short: "Delete the note attached to a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, lineNo, err := parseFileLineArgs(args)
			if err != nil {
				return err
			}
			text, err := resolveLine(path, lineNo)
			if err != nil {
				return err
			}
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			id := linemark.HashLine(text)
			if err := backend.Delete(id); err != nil {
				if errors.Is(err, linemark.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "no note for %s:%d\n", path, lineNo)
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted note: %s\n", id)
			return nil
		},
	}
}

// NewListCommand prints every stored note's identifier and summary line.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer backend.Close()

			all, err := backend.ListAll()
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(all))
			for id := range all {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				summary, _, _ := strings.Cut(all[id], "\n")
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", id, summary)
			}
			return nil
		},
	}
}
