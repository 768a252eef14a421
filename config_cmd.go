package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file with every default",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		masked := *resolvedCfg
		if masked.ClientSecret != "" {
			masked.ClientSecret = "********"
		}

		return printJSON(masked.Config)
	}

	return config.RenderEffective(resolvedCfg, os.Stdout)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		path = config.ReadEnvOverrides().ConfigPath
	}

	if path == "" {
		path = config.DefaultConfigPath()
	}

	if err := config.WriteTemplate(path, buildLogger()); err != nil {
		return err
	}

	statusf("Wrote %s\n", path)

	return nil
}
