// Command tagcache is a small operator CLI around the tagcache library:
// adding and inspecting records, age-based cleanup, and re-submitting the
// backup files a failed flush leaves behind.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentkit/tagcache/config"
	"github.com/agentkit/tagcache/logger"
	"github.com/agentkit/tagcache/tagcache"
)

var rootCmd = &cobra.Command{
	Use:   "tagcache",
	Short: "Batched tag-indexed record cache",
}

// flagOrEnv resolves a string setting from a flag first, then the
// environment, then a default.
func flagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// newLogger returns a console logger from the --log-level flag, falling back
// to TAGCACHE_LOG_LEVEL and then info.
func newLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	level := flagOrEnv(cmd, "log-level", "TAGCACHE_LOG_LEVEL", "info")
	return logger.NewConsoleLogger(logger.ParseLevel(level))
}

// openCache resolves configuration (env file, then YAML file, then
// environment) and constructs the cache over the configured backend.
func openCache(ctx context.Context, cmd *cobra.Command) (*tagcache.Cache, logger.Logger, error) {
	log := newLogger(cmd)
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := config.ApplyEnvFile(envFile); err != nil {
			return nil, nil, err
		}
	}
	var cfg config.Config
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, nil, err
		}
	}
	cfg = cfg.FromEnv()
	st, err := cfg.OpenStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	cache, err := tagcache.New(st, log, cfg.CacheOptions()...)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return cache, log, nil
}

func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", "", "path to an env file to load")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(addCmd, queryCmd, getCmd, updateCmd, cleanupCmd, recoverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
