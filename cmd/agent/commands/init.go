package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/agent"
	"github.com/blackhole-pro/agentcore/internal/config"
	"github.com/blackhole-pro/agentcore/internal/did/methods/dhtmethod"
	"github.com/blackhole-pro/agentcore/internal/did/methods/jwkmethod"
	"github.com/blackhole-pro/agentcore/internal/did/methods/keymethod"
	"github.com/blackhole-pro/agentcore/internal/did/methods/webmethod"
)

// NewInitCommand creates the "init" command: first-launch vault seeding.
func NewInitCommand(log *zap.Logger, cfgPath *string) *cobra.Command {
	var passphrase string
	var recoveryPhrase string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the agent's vault and derive its DID",
		Long:  `Seeds the identity vault under a passphrase, either from a freshly generated BIP-39 mnemonic or a supplied recovery phrase, and writes the sealed state to disk.`,
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

			if _, err := os.Stat(cfg.VaultStatePath); err == nil {
				return fmt.Errorf("vault state already exists at %s; refusing to overwrite", cfg.VaultStatePath)
			}

			a := newAgentFromConfig(log, cfg)
			defer a.Close()

			mnemonic, err := a.Initialize(passphrase, recoveryPhrase)
			if err != nil {
				return err
			}

			backup, err := a.Backup()
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfg.VaultStatePath, backup.Data, 0600); err != nil {
				return fmt.Errorf("writing vault state: %w", err)
			}

			if mnemonic != "" {
				fmt.Printf("Recovery phrase (store this safely, it will not be shown again):\n%s\n\n", mnemonic)
			}
			fmt.Printf("Vault initialized at %s\n", cfg.VaultStatePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "vault passphrase (required)")
	cmd.Flags().StringVar(&recoveryPhrase, "recovery-phrase", "", "existing BIP-39 recovery phrase to restore from, instead of generating a new one")
	return cmd
}

// newAgentFromConfig builds an Agent with every DID method back-end
// registered and cfg's work factor / cache TTLs applied.
func newAgentFromConfig(log *zap.Logger, cfg *config.Config) *agent.Agent {
	return agent.New(
		agent.WithLogger(log),
		agent.WithVaultWorkFactor(cfg.VaultWorkFactor.ToVaultWorkFactor()),
		agent.WithPermissionsCacheTTL(cfg.PermissionsCacheTTL),
		agent.WithDIDCacheTTL(cfg.DIDCacheTTL),
		agent.WithDIDMethods(jwkmethod.New(), keymethod.New(), webmethod.New(nil), dhtmethod.New(nil)),
	)
}
