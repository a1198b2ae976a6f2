package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the layered configuration",
	}
	cmd.AddCommand(configCheckCmd(), configShowCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration for an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			good.Printf("  ✓ configuration is valid\n\n")
			field("Environment", cfg.Environment)
			field("Sources", strings.Join(cfg.LoadedFrom, " → "))
			field("Listen", cfg.Server.Address())
			field("Store", cfg.Store.Driver)
			field("Auth", cfg.Auth.Mode)
			field("Events", cfg.Events.Provider)
			field("Log level", cfg.Logging.Level+" ("+cfg.Logging.Format+")")
			field("Request rows", cfg.Graph.Limits.RequestRows)
			field("Profile cap", cfg.Graph.Limits.ProfileBatchCap)
			field("Tick interval", cfg.Graph.Layout.TickInterval)
			field("Max ticks", cfg.Graph.Layout.MaxTicks)
			if cfg.Tracing.Enabled {
				field("Tracing", cfg.Tracing.Endpoint)
			}
			if cfg.Store.Driver == "memory" {
				fmt.Println()
				warn.Println("  ! the memory store is discarded on exit")
			}
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			shown.Supabase.ServiceRoleKey = mask(shown.Supabase.ServiceRoleKey)
			shown.Supabase.AnonKey = mask(shown.Supabase.AnonKey)
			shown.Auth.JWTSecret = mask(shown.Auth.JWTSecret)

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(&shown)
		},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
