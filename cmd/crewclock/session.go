package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fentz26/crewclock/internal/api"
	"github.com/fentz26/crewclock/internal/auth"
	"github.com/fentz26/crewclock/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in to the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored sign-in",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var loginPassword string

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	m, err := auth.NewManager(config.Dir())
	if err != nil {
		return err
	}

	password := loginPassword
	if password == "" {
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	client := api.NewClient(cfg.APIBase, cfg.RequestTimeout, logger)
	s, err := m.Login(ctx, client, cfg.APIBase, args[0], password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", s.User.Username, s.User.Role)
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	m, err := auth.NewManager(config.Dir())
	if err != nil {
		return err
	}
	if err := m.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	m, err := auth.NewManager(config.Dir())
	if err != nil {
		return err
	}
	s, err := m.Current()
	if err != nil {
		return err
	}
	fmt.Printf("User:    %s\n", s.User.Username)
	fmt.Printf("Role:    %s\n", s.User.Role)
	fmt.Printf("Backend: %s\n", s.APIBase)
	fmt.Printf("Since:   %s\n", s.CreatedAt.Local().Format(timeLayout))
	return nil
}
