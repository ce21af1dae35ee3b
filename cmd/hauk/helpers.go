package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amonks/hauk/internal/config"
	"github.com/amonks/hauk/internal/logger"
	"github.com/amonks/hauk/internal/paths"
	"github.com/amonks/hauk/internal/state"
)

func loadConfig() (*config.Config, error) {
	cwd, err := paths.WorkingDir()
	if err != nil {
		return nil, err
	}
	return config.Load(cwd)
}

func openStore() (*state.Store, error) {
	dir, err := paths.ResolveWithDefault(stateDirFlag, paths.DefaultStateDir)
	if err != nil {
		return nil, err
	}
	return state.NewStore(dir), nil
}

// newLogger builds the CLI logger. While the terminal UI owns the screen,
// logs only go somewhere if they are written to a file.
func newLogger(cfg *config.Config, tui bool) (*logger.Logger, error) {
	logConfig := cfg.Log.LoggerConfig()
	log, err := logger.New(logConfig)
	if err != nil {
		return nil, err
	}
	if tui && !logConfig.ToFile() {
		log.SetOutput(io.Discard)
	}
	return log, nil
}

func encodeJSONToStdout(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func hasChangedFlags(cmd *cobra.Command, flags ...string) bool {
	for _, flag := range flags {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}

func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}
