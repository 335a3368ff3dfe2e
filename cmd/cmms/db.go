package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/primefragrance/cmms/internal/config"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the CMMS database",
		Long:  "Creates the MySQL database when needed and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config from %s (driver %s)\n", configPath, cfg.Database.Driver)

	if cfg.Database.Driver == "mysql" && cfg.Database.DSN == "" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nCMMS database initialized successfully.")
	return nil
}

func migrate(cmd *cobra.Command, gormDB *gorm.DB) error {
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-create all CMMS tables",
		Long: `Drops every CMMS table and migrates them again.

For MySQL without an explicit DSN the whole database is dropped and
re-created. All work orders, schedules and users are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := cfg.Database.DSN
	if target == "" {
		target = cfg.Database.Name
	}

	if !skipConfirm && !confirmReset(cmd, target) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	if cfg.Database.Driver == "mysql" && cfg.Database.DSN == "" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s re-created\n", cfg.Database.Name)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.DropAll(gormDB); err != nil {
		return err
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nCMMS database reset successfully.")
	return nil
}

func newDBSeedCmd() *cobra.Command {
	var (
		configPath string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, assets, spare parts and budgets",
		Long: `Inserts the demo accounts (one per role), the production line assets
with their components, the spare part catalogue and this year's budgets.
Existing rows are left untouched. Every demo account gets the same password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(cmd, configPath, password)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&password, "password", "", "password for the demo accounts (prompted when empty)")
	return cmd
}

func runDBSeed(cmd *cobra.Command, configPath, password string) error {
	_, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	if password == "" {
		if password, err = readPassword(cmd, "Demo account password: "); err != nil {
			return err
		}
	}
	if err := migrate(cmd, gormDB); err != nil {
		return err
	}
	if err := db.Seed(gormDB, db.SeedOptions{Password: password}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Seeded demo users, assets, inventory and budgets.")
	return nil
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %q.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
