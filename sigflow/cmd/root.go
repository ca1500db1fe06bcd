// Package cmd provides the command-line interface for signalflow.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables that provide flag defaults. They can also be set in a
// .env file in the working directory.
const (
	EnvMonitorPort  = "SIGFLOW_MONITOR_PORT"
	EnvKafkaBrokers = "SIGFLOW_KAFKA_BROKERS"
	EnvKafkaTopic   = "SIGFLOW_KAFKA_TOPIC"
	EnvMQTTBroker   = "SIGFLOW_MQTT_BROKER"
)

// NewRootCmd creates the sigflow command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "sigflow",
		Short: "sigflow runs periodic calculation networks described in " +
			"YAML files.",
		Long: `sigflow runs periodic calculation networks described in YAML ` +
			`files. It can also check a network without running it, print ` +
			`the update order, and read back recorded sweeps.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newDescribeCmd(),
		newHistoryCmd(),
		newKindsCmd(),
	)

	return rootCmd
}

// Execute loads the .env file, if any, and runs the root command.
func Execute() {
	if err := loadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring %s=%q: not an integer\n", key, v)
		return def
	}

	return n
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
