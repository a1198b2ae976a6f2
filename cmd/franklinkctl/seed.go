package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"franklink-backend/internal/config"
	"franklink-backend/internal/di"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/repository/ddb"
	"franklink-backend/internal/repository/sqlstore"
)

func seedCmd() *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a fixture of users, requests and chats into the configured store",
		Long: "Seeds the sqlite or dynamodb store named by the configuration. The memory\n" +
			"store seeds itself at startup from store.seed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := repository.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			switch cfg.Store.Driver {
			case config.DriverSQLite:
				st, err := sqlstore.Open(ctx, cfg.Store.SQLitePath, sqlstore.WithLogger(zap.NewNop()))
				if err != nil {
					return err
				}
				defer st.Close()
				local, err := sqlstore.NewLocalAuth(st, di.JWTConfig(cfg), 0)
				if err != nil {
					return err
				}
				if err := st.Seed(ctx, fixture, local); err != nil {
					return err
				}
			case config.DriverDynamoDB:
				awsCfg, err := di.LoadAWSConfig(ctx, cfg)
				if err != nil {
					return err
				}
				st := ddb.New(di.NewDynamoDBClient(awsCfg, cfg), cfg.Store.TableName, zap.NewNop())
				if err := st.Seed(ctx, fixture); err != nil {
					return err
				}
				if len(fixture.Accounts) > 0 {
					warn.Println("  ! accounts are skipped: dynamodb deployments sign in through Supabase")
				}
			default:
				return fmt.Errorf("seeding is not supported for the %s driver", cfg.Store.Driver)
			}

			good.Printf("  ✓ seeded %s store\n", cfg.Store.Driver)
			field("Users", len(fixture.Users))
			field("Requests", len(fixture.Requests))
			field("Chats", len(fixture.Chats))
			field("Accounts", len(fixture.Accounts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "config/seed.yaml", "Fixture YAML file")
	return cmd
}
