package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/relaycrm/backend/internal/application/services"
	"github.com/relaycrm/backend/internal/bootstrap"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
)

// crmctl is the operator CLI: tenant provisioning, demo seeding and
// destructive maintenance that should never ride on the HTTP surface.
func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "crmctl",
		Short: "RelayCRM operations CLI",
	}

	root.AddCommand(signupCmd(), seedCmd(), migrateCmd(), wipeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect() (*database.Connection, *services.ServiceManager, error) {
	db, err := database.GetInstance()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := bootstrap.InitializeSchema(db); err != nil {
		return nil, nil, err
	}
	return db, services.NewServiceManager(db), nil
}

func signupCmd() *cobra.Command {
	var orgName, orgDomain, adminName, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Provision a tenant with its first admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svcMgr, err := connect()
			if err != nil {
				return err
			}

			user, err := svcMgr.Auth.Signup(cmd.Context(), services.SignupInput{
				OrgName:   orgName,
				OrgDomain: orgDomain,
				AdminName: adminName,
				Email:     email,
				Password:  password,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Organization %q created, admin user %s (%s)\n", orgName, user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&orgName, "org", "", "organization name")
	cmd.Flags().StringVar(&orgDomain, "domain", "", "organization domain")
	cmd.Flags().StringVar(&adminName, "name", "Admin", "admin display name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the demo tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svcMgr, err := connect()
			if err != nil {
				return err
			}
			return bootstrap.SeedDemoData(cmd.Context(), svcMgr)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.GetInstance()
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			return bootstrap.InitializeSchema(db)
		},
	}
}

func wipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Drop all tables (destructive, requires --yes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to wipe without --yes")
			}

			db, err := database.GetInstance()
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			tables := []string{
				persistence.TableOutboxEvents,
				persistence.TableEmailMessages,
				persistence.TableTasks,
				persistence.TableNotifications,
				persistence.TableCampaignMembers,
				persistence.TableCampaigns,
				persistence.TableWorkflows,
				persistence.TableApprovalWorkItems,
				persistence.TableApprovalProcesses,
				persistence.TableContracts,
				persistence.TableQuoteLines,
				persistence.TableQuotes,
				persistence.TablePriceBookEntries,
				persistence.TablePriceBooks,
				persistence.TableOpportunities,
				persistence.TableContacts,
				persistence.TableLeads,
				persistence.TableAccounts,
				persistence.TableTerritories,
				persistence.TableUsers,
				persistence.TableOrganizations,
			}

			ctx := context.Background()
			for _, table := range tables {
				if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
					return fmt.Errorf("failed to drop %s: %w", table, err)
				}
				log.Printf("🗑️ Dropped %s", table)
			}

			fmt.Println("Database wiped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the wipe")
	return cmd
}
