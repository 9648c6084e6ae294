package cli

import (
	"fmt"
	"strconv"

	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/session"
	"github.com/spf13/cobra"
)

// commit saves the session after a mutation. The change is already applied
// in memory, so a failure here only means it did not reach storage.
func commit(cmd *cobra.Command, sess *session.Session) error {
	if err := sess.Commit(cmd.Context()); err != nil {
		return fmt.Errorf("change was not saved: %w", err)
	}
	return nil
}

func newTitleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "title <text>",
		Short: "Set the path title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			sess.Store.SetTitle(args[0])
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record((*journal.Journal).TitleChanged)
			fmt.Fprintln(cmd.OutOrStdout(), "Title updated.")
			return nil
		},
	}
}

func newObjectivesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "objectives <text>",
		Short: "Set the learning objectives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			sess.Store.SetObjectives(args[0])
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record((*journal.Journal).ObjectivesChanged)
			fmt.Fprintln(cmd.OutOrStdout(), "Objectives updated.")
			return nil
		},
	}
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the path with the default three-step path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			sess.Store.Reset()
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record((*journal.Journal).PathReset)
			fmt.Fprintln(cmd.OutOrStdout(), "Path reset.")
			return nil
		},
	}
}

// parseID parses a positive step or resource id argument.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %s", kind, arg)
	}
	return id, nil
}

// parseStepID parses a step id and checks it exists in the session.
func parseStepID(sess *session.Session, arg string) (int, error) {
	id, err := parseID("step", arg)
	if err != nil {
		return 0, err
	}
	if sess.Store.Snapshot().StepIndex(int(id)) < 0 {
		return 0, fmt.Errorf("step not found: %d", id)
	}
	return int(id), nil
}
