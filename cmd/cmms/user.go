package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/primefragrance/cmms/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cliActor is recorded as the creator of accounts added from the command line.
const cliActor = "cli"

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User account commands",
	}

	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var (
		configPath string
		req        auth.RegisterRequest
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user account",
		Long: `Registers a user with one of the roles Operator, Teknisi, Supervisor
or Manager. The password is prompted without echo unless --password is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(cmd, configPath, req)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "login name (required)")
	cmd.Flags().StringVarP(&req.Role, "role", "r", "", "Operator, Teknisi, Supervisor or Manager (required)")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	cmd.Flags().StringVar(&req.Department, "department", "", "department")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when empty)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("role")
	return cmd
}

func runUserAdd(cmd *cobra.Command, configPath string, req auth.RegisterRequest) error {
	cfg, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	if req.Name == "" {
		req.Name = req.Username
	}
	if req.Password == "" {
		if req.Password, err = readPassword(cmd, "Password: "); err != nil {
			return err
		}
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	svc := auth.NewService(gormDB, tokens, auth.NewMemoryRevoker())
	user, err := svc.Register(cmd.Context(), req, cliActor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s registered as %s (id %d)\n", user.Username, user.Role, user.ID)
	return nil
}

func newUserListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runUserList(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	users, err := auth.NewService(gormDB, tokens, auth.NewMemoryRevoker()).ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tNAME\tDEPARTMENT\tCREATED BY")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Username, u.Role, u.DisplayName(), dash(u.Department), dash(u.CreatedBy))
	}
	return w.Flush()
}

// readPassword prompts for a password. On a terminal the input is not
// echoed; otherwise one line is read from the command's input.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", fmt.Errorf("read password: no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
