package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/config"
)

// NewStatusCommand creates the "status" command: reports whether the
// agent has ever been initialized, without requiring a passphrase.
func NewStatusCommand(log *zap.Logger, cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the agent's vault has been initialized",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.VaultStatePath); os.IsNotExist(err) {
				fmt.Printf("firstLaunch: true (no vault state at %s)\n", cfg.VaultStatePath)
				return nil
			} else if err != nil {
				return err
			}

			fmt.Printf("firstLaunch: false (vault state present at %s)\n", cfg.VaultStatePath)
			fmt.Println("run 'agent start --passphrase ...' to unlock and report the agent's DID")
			return nil
		},
	}
	return cmd
}
