package main

import (
	"fmt"
	"os"

	"github.com/fentz26/crewclock/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the crewclock config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configForce bool

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	c := config.DefaultConfig()
	if apiAddr != "" {
		c.APIBase = apiAddr
	}
	if err := config.SaveConfig(configPath, c); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if apiAddr != "" {
		c.APIBase = apiAddr
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", configPath, out)
	return nil
}
