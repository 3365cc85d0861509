// main.go: subkey command line tool.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agilira/subkey"
)

const (
	cfgConfig        = "config"
	cfgLogLevel      = "log-level"
	cfgPrimitive     = "primitive"
	cfgEncoding      = "encoding"
	cfgParentKey     = "parent-key" // environment/config only, never a flag
	cfgParentKeyFile = "parent-key-file"
	cfgPrompt        = "prompt"
	cfgIndex         = "index"
	cfgContext       = "context"
	cfgLength        = "length"

	envPrefix = "SUBKEY"

	encodingHex    = "hex"
	encodingBase64 = "base64"
)

// app carries per-invocation state so tests can build independent command trees.
type app struct {
	v        *viper.Viper
	logger   *slog.Logger
	registry *subkey.Registry
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:        viper.New(),
		logger:   slog.New(slog.DiscardHandler),
		registry: subkey.NewDefaultRegistry(),
	}

	rootCmd := &cobra.Command{
		Use:               "subkey",
		Short:             "derive deterministic subkeys from a parent key",
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	rootFlags := flag.NewFlagSet("", flag.ContinueOnError)
	rootFlags.String(cfgConfig, "", "YAML config file")
	rootFlags.String(cfgLogLevel, "warn", "log level (debug, info, warn, error)")
	rootFlags.String(cfgPrimitive, "", "derivation primitive (default: registry default)")
	rootFlags.String(cfgEncoding, encodingHex, "key encoding (hex, base64)")
	rootCmd.PersistentFlags().AddFlagSet(rootFlags)
	_ = a.v.BindPFlags(rootCmd.PersistentFlags())

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(a.deriveCmd(), a.sampleCmd(), a.primitivesCmd())
	return rootCmd
}

// initConfig loads the optional config file and sets up logging.
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	// Local flags share keys between subcommands, so bind only the running one.
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if path := a.v.GetString(cfgConfig); path != "" {
		a.v.SetConfigFile(path)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(cfgLogLevel))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.v.GetString(cfgLogLevel), err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) encode(key []byte) (string, error) {
	switch enc := a.v.GetString(cfgEncoding); enc {
	case encodingHex:
		return subkey.KeyToHex(key), nil
	case encodingBase64:
		return subkey.KeyToBase64(key), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}
}

func (a *app) decode(s string) ([]byte, error) {
	switch enc := a.v.GetString(cfgEncoding); enc {
	case encodingHex:
		return subkey.KeyFromHex(s)
	case encodingBase64:
		return subkey.KeyFromBase64(s)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}
