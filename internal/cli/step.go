package cli

import (
	"fmt"
	"strconv"

	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/path"
	"github.com/spf13/cobra"
)

func newStepCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Add, edit, move and remove steps",
	}
	cmd.AddCommand(
		newStepAddCmd(flags),
		newStepEditCmd(flags),
		newStepRmCmd(flags),
		newStepMoveCmd(flags),
	)
	return cmd
}

func newStepAddCmd(flags *globalFlags) *cobra.Command {
	var title, task string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a new step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			p := sess.Store.AddStep()
			id := p.Steps[len(p.Steps)-1].ID

			patch := path.StepPatch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("task") {
				patch.Task = &task
			}
			if patch.Title != nil || patch.Task != nil {
				if _, err := sess.Store.UpdateStep(id, patch); err != nil {
					return err
				}
			}

			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.StepAdded(id) })
			fmt.Fprintf(cmd.OutOrStdout(), "Added step %d.\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Step title (defaults to \"Étape <id>\")")
	cmd.Flags().StringVar(&task, "task", "", "Task description")
	return cmd
}

func newStepEditCmd(flags *globalFlags) *cobra.Command {
	var title, task string

	cmd := &cobra.Command{
		Use:   "edit <step-id>",
		Short: "Change a step's title or task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			id, err := parseStepID(sess, args[0])
			if err != nil {
				return err
			}

			patch := path.StepPatch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("task") {
				patch.Task = &task
			}
			if patch.Title == nil && patch.Task == nil {
				return fmt.Errorf("nothing to change: pass --title and/or --task")
			}

			if _, err := sess.Store.UpdateStep(id, patch); err != nil {
				return err
			}
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.StepUpdated(id) })
			fmt.Fprintf(cmd.OutOrStdout(), "Updated step %d.\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New step title")
	cmd.Flags().StringVar(&task, "task", "", "New task description")
	return cmd
}

func newStepRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <step-id>",
		Aliases: []string{"delete"},
		Short:   "Remove a step",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			id, err := parseStepID(sess, args[0])
			if err != nil {
				return err
			}

			sess.Store.DeleteStep(id)
			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.StepDeleted(id) })
			fmt.Fprintf(cmd.OutOrStdout(), "Removed step %d.\n", id)
			return nil
		},
	}
}

func newStepMoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move the step at position <from> to position <to> (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position: %s", args[0])
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position: %s", args[1])
			}

			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			before := sess.Store.Snapshot()
			after := sess.Store.ReorderSteps(from-1, to-1)
			if from == to || from < 1 || to < 1 || from > len(before.Steps) || to > len(before.Steps) {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing moved: the path has %d steps.\n", len(after.Steps))
				return nil
			}

			if err := commit(cmd, sess); err != nil {
				return err
			}
			moved := after.Steps[to-1].ID
			sess.Record(func(j *journal.Journal) error { return j.StepMoved(moved, from, to) })
			fmt.Fprintf(cmd.OutOrStdout(), "Moved step %d to position %d.\n", moved, to)
			return nil
		},
	}
}
