package terminal

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/de-tools/trend-radar/pkg/runtime/terminal/commands"
)

// CLI represents the command-line interface
type CLI struct {
	rootCmd *cobra.Command
}

// NewCLI creates a new CLI instance
func NewCLI() *CLI {
	cli := &CLI{}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// ExecuteContext runs the CLI with a context carrying the process logger.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trend-radar",
		Short: "Search trends monitoring tool",
	}

	cmd.AddCommand(commands.NewMonitorCmd())
	cmd.AddCommand(commands.NewScrapeCmd())
	cmd.AddCommand(commands.NewSetupCmd())
	cmd.AddCommand(commands.NewHealthCmd())

	return cmd
}
