/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// flags.go defines global CLI flags and accessors for shared state.
//
// Persistent flags are bound into a viper instance together with TAGD_*
// environment variables, so every setting resolves as flag > environment
// > default. A .env file in the working directory is loaded first and
// never overrides variables already set.

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jpl-au/tagd/internal/config"
)

var validOutputFormats = []string{"json"}

// Setting keys. Flag names use dashes; viper keys and the TAGD_ variables
// use underscores.
const (
	keyDB     = "db"
	keyDir    = "dir"
	keyAuthor = "author"
	keyStrict = "strict_case_match"
)

var (
	output string
	author string
	force  bool
	db     string
	dir    string
)

// settings layers flags over TAGD_* environment variables.
var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("tagd")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// IsSet only sees environment variables that are bound explicitly.
	_ = v.BindEnv(keyStrict)
	return v
}

// bindFlags binds every flag in fs to settings under its own name.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

// loadDotEnv loads .env from the working directory if present.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// out is the output writer for commands. Defaults to os.Stdout.
// Tests can replace this to capture output.
var out io.Writer = os.Stdout

// Out returns the output writer.
func Out() io.Writer { return out }

// Output returns the output format flag value.
func Output() string { return output }

// Author returns the resolved author.
func Author() string { return author }

// Force returns the force flag value.
func Force() bool { return force }

// DB returns the resolved database name.
// Priority: --db flag > TAGD_DB env var > empty (default).
func DB() string { return settings.GetString(keyDB) }

// Dir returns the explicit database directory if set.
// Priority: --dir flag > TAGD_DIR env var > empty (use discovery).
func Dir() string { return settings.GetString(keyDir) }

// StrictOverride returns the case policy forced by TAGD_STRICT_CASE_MATCH,
// or nil when it is not set.
func StrictOverride() *bool {
	if !settings.IsSet(keyStrict) {
		return nil
	}
	b := settings.GetBool(keyStrict)
	return &b
}

// SetOut sets the output writer (for testing).
func SetOut(w io.Writer) { out = w }

// JSON returns true if JSON output is requested.
func JSON() bool { return output == "json" }

// PrintJSON marshals v to JSON and writes it to the output writer.
// Returns nil if output format is not JSON.
func PrintJSON(v any) error {
	if output != "json" {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// PrintJSONError prints an error in JSON format if output is JSON.
// Returns nil if error was printed (suppressing Cobra error), or the original error if not.
func PrintJSONError(err error) error {
	if output != "json" || err == nil {
		return err
	}
	_ = PrintJSON(map[string]string{"error": err.Error()})
	return nil
}

// detectAuthor falls back to the configured author name.
// Returns empty string when config is missing or has no author set.
func detectAuthor() string {
	if cfg, err := config.Load(); err == nil && cfg.Author.Name != "" {
		return cfg.Author.Name
	}
	return ""
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&output, "output", "o", "", "Output format: json")
	pf.StringVarP(&author, keyAuthor, "a", "", "Audit attribution (env TAGD_AUTHOR)")
	pf.BoolVar(&force, "force", false, "Skip confirmations")
	pf.StringVar(&db, keyDB, "", "Database name (e.g., work for tagd-work.db; env TAGD_DB)")
	pf.StringVar(&dir, keyDir, "", "Database directory (skip discovery; env TAGD_DIR)")
	bindFlags(settings, pf)

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return validOutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
