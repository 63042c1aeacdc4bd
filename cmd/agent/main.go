// Command agent is the identity-and-messaging agent's CLI: init|start|status
// wrapping internal/agent.Agent with cobra commands and structured zap
// logging.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/cmd/agent/commands"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfgPath string
	root := &cobra.Command{
		Use:   "agent",
		Short: "Decentralized identity and messaging agent",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to agent.yaml (defaults to ./agent.yaml, $HOME/.agent/agent.yaml, /etc/agent/agent.yaml)")

	root.AddCommand(
		commands.NewInitCommand(logger, &cfgPath),
		commands.NewStartCommand(logger, &cfgPath),
		commands.NewStatusCommand(logger, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
