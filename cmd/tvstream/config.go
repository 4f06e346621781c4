package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the session profile",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default session profile",
	Long: `Write the default session profile to --config, or to the default location
when --config is not set. An existing file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective session profile",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing profile")
}

func profilePath(cmd *cobra.Command) (string, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return "", err
	}
	if path := v.GetString("config"); path != "" {
		return path, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := profilePath(cmd)
	if err != nil {
		return err
	}

	if !configForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("session profile already exists at %s (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot access %s: %w", path, err)
		}
	}

	if err := config.DefaultProfile().Save(path); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.NewSuccessResult("Session profile written",
		ui.Param{Key: "Path", Value: path},
	).Render())
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	profile, err := config.LoadProfile(v.GetString("config"))
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(profile); err != nil {
		return fmt.Errorf("failed to encode session profile: %w", err)
	}
	return enc.Close()
}
