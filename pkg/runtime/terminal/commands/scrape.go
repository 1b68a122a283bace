package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/trend-radar/pkg/services/monitor"
)

type ScrapeCmd struct {
	configPath string
	group      string
	topics     bool
	interest   bool
	limit      int
}

func NewScrapeCmd() *cobra.Command {
	sc := &ScrapeCmd{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch trend data without exporting (dry run)",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.configPath, "config", defaultConfigPath, "Path to the run configuration file")
	cmd.Flags().StringVar(&sc.group, "group", "", "Restrict the run to one country group")
	cmd.Flags().BoolVar(&sc.topics, "topics", false, "Include related topics in the extraction")
	cmd.Flags().BoolVar(&sc.interest, "interest", false, "Include interest over time in the extraction")
	cmd.Flags().IntVar(&sc.limit, "sample", 5, "Number of sample records to print")

	return cmd
}

func (sc *ScrapeCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	env, err := buildEnv(ctx, sc.configPath)
	if err != nil {
		return err
	}
	defer env.close()

	records, err := env.runner.Scrape(ctx, monitor.Options{
		IncludeTopics:   sc.topics,
		IncludeInterest: sc.interest,
		Group:           sc.group,
	})
	if err != nil {
		return err
	}

	logger.Info().Int("records", len(records)).Msg("scrape complete")
	for i, record := range records {
		if i >= sc.limit {
			break
		}
		logger.Info().
			Str("category", string(record.Category)).
			Str("title", record.Title).
			Str("value", record.Value).
			Msg("sample record")
	}
	return nil
}
