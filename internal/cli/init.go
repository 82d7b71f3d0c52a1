package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/laczik/squidnote-unpack/internal/paths"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

func newConfigCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the squidnote-unpack configuration file",
		Args:  noArgs,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		Long:  "Create the configuration directory and write config.yaml with default values.\nAn existing file is left untouched.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, f)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, f)
		},
	})
	return cmd
}

func runConfigInit(cmd *cobra.Command, f *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return fmt.Errorf("resolving config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	path := paths.ConfigFile(configDir)
	created, err := writeConfigIfMissing(path, types.DefaultConfig())
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, f *rootFlags) error {
	cfg, used, err := loadConfig(cmd, f.configDir)
	if err != nil {
		return err
	}
	if used == "" {
		used = "none, using defaults"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# config file: %s\n", used)
	_, err = out.Write(data)
	return err
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether the file was written.
func writeConfigIfMissing(path string, cfg types.Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}
