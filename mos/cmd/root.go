// Package cmd provides the command-line interface of the batch machine.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// EnvPrefix prefixes the environment variables that provide flag defaults.
const EnvPrefix = "MOS_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mos",
	Short: "mos runs batch card decks on an emulated paged machine.",
	Long: `mos runs batch card decks on an emulated paged machine. Each flag ` +
		`can also be set with an environment variable named after it, such ` +
		`as MOS_SEED for --seed. Variables are read from a .env file if ` +
		`one exists.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		return applyEnvDefaults(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File with environment variables to load before parsing defaults.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// EnvName returns the environment variable that backs a flag.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnvDefaults sets every flag that was not given on the command line
// from its environment variable, if present.
func applyEnvDefaults(cmd *cobra.Command) error {
	var firstErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}

		value, ok := os.LookupEnv(EnvName(f.Name))
		if !ok {
			return
		}

		if err := cmd.Flags().Set(f.Name, value); err != nil {
			firstErr = fmt.Errorf("%s: %w", EnvName(f.Name), err)
		}
	})

	return firstErr
}
