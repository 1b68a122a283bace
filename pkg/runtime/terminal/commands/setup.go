package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SetupCmd struct {
	configPath string
}

func NewSetupCmd() *cobra.Command {
	sc := &SetupCmd{}
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the destination tabs in the spreadsheet",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.configPath, "config", defaultConfigPath, "Path to the run configuration file")

	return cmd
}

func (sc *SetupCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	env, err := buildEnv(ctx, sc.configPath)
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.exporter.Connect(ctx); err != nil {
		return err
	}
	if err := env.exporter.SetupSheets(ctx); err != nil {
		return err
	}

	counts, err := env.exporter.RowCounts(ctx)
	if err != nil {
		return err
	}
	for tab, count := range counts {
		logger.Info().Str("tab", tab).Int("rows", count).Msg("tab ready")
	}
	logger.Info().Msg("setup complete")
	return nil
}
