// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wildmooseai/pageprep/internal/config"
	"github.com/wildmooseai/pageprep/internal/observability"
)

var cfgFile string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "pageprep",
	Short: "pageprep observes and prepares web pages for automation",
	Long: `pageprep keeps automated browsing sessions on stable ground: it waits
for pages to become ready, strips configured overlay elements as they
appear, keeps navigation in the current tab, and classifies which
elements an automation harness may click directly.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			// A fallback logger keeps the failure visible.
			observability.InitializeLogger(config.LoggerConfig{
				Level: "info", Format: "console", ServiceName: "pageprep",
			})
			return err
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting pageprep.", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command failed.", zap.Error(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./pageprep.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newReadyCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newClassifyCmd())
}

// initializeConfig wires the config file and PAGEPREP_* environment
// variables into viper.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".pageprep"))
		}
		viper.SetConfigName("pageprep")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PAGEPREP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}
	return nil
}

// loadConfig materializes the validated configuration from viper.
func loadConfig() (*config.Config, error) {
	return config.NewConfigFromViper(viper.GetViper())
}
