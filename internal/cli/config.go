package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/laczik/squidnote-unpack/internal/paths"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SQUIDNOTE"

	// Keys in config.yaml; the environment uses SQUIDNOTE_<KEY>.
	cfgKeyOutputDir       = "output_dir"
	cfgKeyLocale          = "locale"
	cfgKeyStrictDocuments = "strict_documents"
	cfgKeyKeepGoing       = "keep_going"
	cfgKeyUTC             = "utc"
)

// flagKeys binds config keys to the command-line flags overriding them.
var flagKeys = map[string]string{
	cfgKeyOutputDir:       "output-dir",
	cfgKeyStrictDocuments: "strict-documents",
	cfgKeyKeepGoing:       "keep-going",
	cfgKeyUTC:             "utc",
}

// loadConfig resolves the settings for one command: flag > env > config.yaml
// > default. A missing config.yaml is not an error and is never created
// here. It returns the validated config and the config file path, or "" when
// no file was read.
func loadConfig(cmd *cobra.Command, configDirFlag string) (*types.Config, string, error) {
	// An optional .env in the working directory feeds the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", userErrorf("loading .env: %w", err)
	}

	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return nil, "", fmt.Errorf("resolving config directory: %w", err)
	}

	def := types.DefaultConfig()
	v := viper.New()
	v.SetDefault(cfgKeyOutputDir, def.OutputDir)
	v.SetDefault(cfgKeyLocale, def.Locale)
	v.SetDefault(cfgKeyStrictDocuments, def.StrictDocuments)
	v.SetDefault(cfgKeyKeepGoing, def.KeepGoing)
	v.SetDefault(cfgKeyUTC, def.UTC)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, "", err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", userErrorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", userErrorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", userErrorf("invalid config: %w", err)
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// bindFlags binds the flags present in set; commands without a flag simply
// fall through to env, file and default.
func bindFlags(v *viper.Viper, set *pflag.FlagSet) error {
	for key, name := range flagKeys {
		fl := set.Lookup(name)
		if fl == nil {
			continue
		}
		if err := v.BindPFlag(key, fl); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}
