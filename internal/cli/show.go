package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/render"
	"github.com/spf13/cobra"
)

func newShowCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the learning path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, flags)
			if err != nil {
				return err
			}
			defer sess.Close()

			p := sess.Store.Snapshot()
			if asJSON {
				data, err := encodeIndent(p)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return render.Text(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored JSON snapshot")
	return cmd
}

// encodeIndent renders a snapshot in the persisted format with 2-space indent.
func encodeIndent(p path.LearningPath) ([]byte, error) {
	data, err := path.Encode(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
