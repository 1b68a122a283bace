package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type HealthCmd struct {
	configPath string
}

func NewHealthCmd() *cobra.Command {
	hc := &HealthCmd{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check spreadsheet and trends connectivity",
		RunE:  hc.run,
	}

	cmd.Flags().StringVar(&hc.configPath, "config", defaultConfigPath, "Path to the run configuration file")

	return cmd
}

func (hc *HealthCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	env, err := buildEnv(ctx, hc.configPath)
	if err != nil {
		return err
	}
	defer env.close()

	healthy := true

	if err := env.exporter.Connect(ctx); err != nil {
		logger.Error().Err(err).Msg("spreadsheet check failed")
		healthy = false
	} else {
		counts, err := env.exporter.RowCounts(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("spreadsheet check failed")
			healthy = false
		} else {
			total := 0
			for _, count := range counts {
				total += count
			}
			logger.Info().Int("total_rows", total).Msg("spreadsheet reachable")
		}
	}

	if err := env.scraper.Session().Probe(ctx); err != nil {
		logger.Error().Err(err).Msg("trends upstream check failed")
		healthy = false
	} else {
		logger.Info().Msg("trends upstream reachable")
	}

	if !healthy {
		return fmt.Errorf("health check failed")
	}
	logger.Info().Msg("health check passed")
	return nil
}
