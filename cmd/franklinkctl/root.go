package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"franklink-backend/internal/config"
)

var version = "1.0.0"

var (
	configDir string
	envName   string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "franklinkctl",
	Short:         "franklinkctl: operate the Franklink backend",
	Long:          brand.Sprint("franklinkctl") + " inspects configuration, seeds local stores and renders connection graphs",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env := config.EnvironmentFromEnv()
		if envName != "" {
			env = config.Environment(envName)
		}
		loaded, err := config.NewLoader(configDir, env).Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate("franklinkctl {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "Directory holding base.yaml and <env>.yaml")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "Environment (defaults to $ENVIRONMENT or development)")

	rootCmd.AddCommand(
		configCmd(),
		seedCmd(),
		tokenCmd(),
		graphCmd(),
		layoutCmd(),
	)
}

func requireUser(user string) error {
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}
