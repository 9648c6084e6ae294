package cli

import (
	"errors"
	"fmt"

	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/path"
	"github.com/spf13/cobra"
)

func newResourceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Attach and remove resource links",
	}
	cmd.AddCommand(newResourceAddCmd(flags), newResourceRmCmd(flags))
	return cmd
}

func newResourceAddCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <step-id> <title> [url]",
		Short: "Attach a resource to a step",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			stepID, err := parseStepID(sess, args[0])
			if err != nil {
				return err
			}
			res := path.NewResource{Title: args[1]}
			if len(args) == 3 {
				res.URL = args[2]
			}

			p, err := sess.Store.AddResource(stepID, res)
			if err != nil {
				if errors.Is(err, path.ErrValidation) {
					return fmt.Errorf("resource not added: %w", err)
				}
				return err
			}
			step, _ := p.Step(stepID)
			added := step.Resources[len(step.Resources)-1]

			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.ResourceAdded(stepID, added.ID, added.Title) })
			fmt.Fprintf(cmd.OutOrStdout(), "Added resource %d to step %d.\n", added.ID, stepID)
			return nil
		},
	}
}

func newResourceRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <step-id> <resource-id>",
		Aliases: []string{"delete"},
		Short:   "Remove a resource from a step",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, done, err := openForEdit(cmd, flags)
			if err != nil {
				return err
			}
			defer done()

			stepID, err := parseStepID(sess, args[0])
			if err != nil {
				return err
			}
			resourceID, err := parseID("resource", args[1])
			if err != nil {
				return err
			}

			before, _ := sess.Store.Snapshot().Step(stepID)
			after, _ := sess.Store.DeleteResource(stepID, resourceID).Step(stepID)
			if len(after.Resources) == len(before.Resources) {
				return fmt.Errorf("resource not found: %d", resourceID)
			}

			if err := commit(cmd, sess); err != nil {
				return err
			}
			sess.Record(func(j *journal.Journal) error { return j.ResourceDeleted(stepID, resourceID) })
			fmt.Fprintf(cmd.OutOrStdout(), "Removed resource %d from step %d.\n", resourceID, stepID)
			return nil
		},
	}
}
