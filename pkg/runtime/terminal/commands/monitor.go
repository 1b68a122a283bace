package commands

import (
	"github.com/spf13/cobra"

	"github.com/de-tools/trend-radar/pkg/services/monitor"
)

type MonitorCmd struct {
	configPath string
	group      string
	topics     bool
	interest   bool
}

func NewMonitorCmd() *cobra.Command {
	mc := &MonitorCmd{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the full monitoring cycle and export results",
		RunE:  mc.run,
	}

	cmd.Flags().StringVar(&mc.configPath, "config", defaultConfigPath, "Path to the run configuration file")
	cmd.Flags().StringVar(&mc.group, "group", "", "Restrict the run to one country group")
	cmd.Flags().BoolVar(&mc.topics, "topics", false, "Include related topics in the extraction")
	cmd.Flags().BoolVar(&mc.interest, "interest", false, "Include interest over time in the extraction")

	return cmd
}

func (mc *MonitorCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := buildEnv(ctx, mc.configPath)
	if err != nil {
		return err
	}
	defer env.close()

	_, err = env.runner.Run(ctx, monitor.Options{
		IncludeTopics:   mc.topics,
		IncludeInterest: mc.interest,
		Group:           mc.group,
	})
	return err
}
