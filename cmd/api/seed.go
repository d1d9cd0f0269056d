// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/users/account"
)

// envAdminPassword supplies the admin password when stdin is not a terminal.
const envAdminPassword = "ADMIN_PASSWORD"

var errNoPassword = errors.New("seed-admin: no password given; run in a terminal or set " + envAdminPassword)

// NewSeedAdminCmd creates the seed-admin subcommand.
func NewSeedAdminCmd() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the default administrator",
		Long: `Create an active ADMIN account unless an account with the given
username already exists. The password is prompted for on a terminal, or read
from ` + envAdminPassword + ` otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.ErrOrStderr(), int(os.Stdin.Fd()), term.IsTerminal, term.ReadPassword, os.Getenv)
			if err != nil {
				return err
			}
			return runSeedAdmin(cmd, account.SeedAdminInput{Username: username, Email: email, Password: password})
		},
	}

	cmd.Flags().StringVar(&username, "username", constants.DefaultAdminUsername, "administrator username")
	cmd.Flags().StringVar(&email, "email", constants.DefaultAdminEmail, "administrator email")

	return cmd
}

func runSeedAdmin(cmd *cobra.Command, input account.SeedAdminInput) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer cancel()

	pool, rdb, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores(log, pool, rdb)

	_, service, err := newAccountService(cfg, log, pool, rdb, nil)
	if err != nil {
		return err
	}

	admin, created, err := service.EnsureAdmin(ctx, input)
	if err != nil {
		return err
	}

	if created {
		cmd.Printf("Administrator %q created (id %d)\n", admin.Username, admin.ID)
	} else {
		cmd.Printf("Account %q already exists (role %s), nothing to do\n", admin.Username, admin.Role)
	}
	return nil
}

// readPassword prompts twice on a terminal, otherwise falls back to the environment.
func readPassword(
	prompt io.Writer,
	fd int,
	isTerminal func(int) bool,
	read func(int) ([]byte, error),
	getenv func(string) string,
) (string, error) {
	if !isTerminal(fd) {
		if password := getenv(envAdminPassword); password != "" {
			return password, nil
		}
		return "", errNoPassword
	}

	fmt.Fprint(prompt, "Admin password: ")
	first, err := read(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("seed-admin: read password: %w", err)
	}

	fmt.Fprint(prompt, "Repeat password: ")
	second, err := read(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("seed-admin: read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("seed-admin: passwords do not match")
	}
	if strings.TrimSpace(string(first)) == "" {
		return "", errNoPassword
	}
	return string(first), nil
}
