package cli

import (
	"github.com/pablasso/parcours/internal/config"
	"github.com/pablasso/parcours/internal/session"
	"github.com/pablasso/parcours/internal/tui"
	"github.com/pablasso/parcours/internal/version"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	backend    string
	dataDir    string
}

// runTUI is swapped out in tests.
var runTUI = tui.Run

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "parcours",
		Short:         "Author a step-by-step learning path",
		Long:          `Parcours keeps an ordered learning path of steps, tasks and resource links, saved automatically after every change. Run without a subcommand to open the editor.`,
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, flags)
			if err != nil {
				return err
			}
			defer sess.Close()
			return runTUI(sess)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "parcours.yaml", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "Storage backend: file|sqlite|redis|memory")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for the saved path, logs and history")

	rootCmd.AddCommand(
		newShowCmd(flags),
		newTitleCmd(flags),
		newObjectivesCmd(flags),
		newStepCmd(flags),
		newResourceCmd(flags),
		newResetCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newHistoryCmd(flags),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// openSession loads configuration, applies flag overrides and opens the path.
func openSession(cmd *cobra.Command, flags *globalFlags) (*session.Session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Storage.Backend = flags.backend
	}
	if flags.dataDir != "" {
		cfg.Storage.DataDir = flags.dataDir
	}
	return session.Open(cmd.Context(), cfg)
}

// openForEdit opens the path for a command that changes it. The returned
// func releases the session lock and closes the session.
func openForEdit(cmd *cobra.Command, flags *globalFlags) (*session.Session, func(), error) {
	sess, err := openSession(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	lock, err := sess.Lock()
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return sess, func() {
		lock.Release()
		sess.Close()
	}, nil
}
