package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/config"
	"github.com/blackhole-pro/agentcore/internal/vault"
)

// NewStartCommand creates the "start" command: unlocks an existing vault
// and reports the agent's DID.
func NewStartCommand(log *zap.Logger, cfgPath *string) *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Unlock the vault and bring the agent's identity up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if passphrase == "" {
				return fmt.Errorf("--passphrase is required")
			}

			data, err := os.ReadFile(cfg.VaultStatePath)
			if err != nil {
				return fmt.Errorf("no vault state at %s; run 'agent init' first: %w", cfg.VaultStatePath, err)
			}

			a := newAgentFromConfig(log, cfg)
			defer a.Close()

			if err := a.RestoreFromBackup(vault.Backup{Data: data}, passphrase); err != nil {
				return err
			}

			agentDid, err := a.AgentDID()
			if err != nil {
				return err
			}
			fmt.Printf("Agent started: %s\n", agentDid)
			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "vault passphrase (required)")
	return cmd
}
