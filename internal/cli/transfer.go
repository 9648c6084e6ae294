package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/util"
	"github.com/spf13/cobra"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the path as JSON to a file, a directory or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, flags)
			if err != nil {
				return err
			}
			defer sess.Close()

			data, err := encodeIndent(sess.Store.Snapshot())
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			target := args[0]
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				target = filepath.Join(target, util.ExportFileName(sess.Store.Snapshot().Title))
			}
			if err := os.WriteFile(target, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d steps to %s.\n", len(sess.Store.Snapshot().Steps), target)
			return nil
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the path with one exported earlier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			p, err := path.Decode(data)
			if err != nil {
				return fmt.Errorf("cannot import %s: %w", args[0], err)
			}

			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			sess.Store.Replace(p)
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.PathImported(args[0], len(p.Steps)) })
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d steps from %s.\n", len(p.Steps), args[0])
			return nil
		},
	}
}
