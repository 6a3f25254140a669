// config.go - Viper configuration for the minkycd CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// initConfig sets up our Viper config object with defaults and loads
// config.yaml from the root directory, creating both if missing.
func initConfig(config *viper.Viper) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	config.SetDefault("rootDir", filepath.Join(homeDir, ".minkyc"))
	if err := os.MkdirAll(config.GetString("rootDir"), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	config.SetConfigType("yaml")
	config.SetConfigFile(filepath.Join(config.GetString("rootDir"), "config.yaml"))

	// Ledger backend: "file" for local single-user runs, "mongo" for a
	// shared deployment, "memory" for throwaway sessions.
	config.SetDefault("ledgerBackend", "file")
	config.SetDefault("ledgerFile", filepath.Join(config.GetString("rootDir"), "ledger.json"))
	config.SetDefault("mongoURL", "mongodb://localhost:27017")
	config.SetDefault("mongoDatabase", "minkyc")

	// Local state files (shape consumed by the protocol; see store.go).
	config.SetDefault("walletFile", filepath.Join(config.GetString("rootDir"), "wallet.key"))
	config.SetDefault("passportFile", filepath.Join(config.GetString("rootDir"), "passport.json"))
	config.SetDefault("secretFile", filepath.Join(config.GetString("rootDir"), ".secret"))
	config.SetDefault("requestFile", filepath.Join(config.GetString("rootDir"), "request.json"))

	config.SetDefault("listenAddr", ":8888")
	config.SetDefault("logLevel", "info")

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return fmt.Errorf("config: %w", err)
			}
		}
	}
	if err := config.WriteConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
