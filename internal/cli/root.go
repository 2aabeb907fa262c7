// Package cli implements the powerpersona CLI commands.
package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oceanbase/powerpersona-go/pkg/archetype"
	"github.com/oceanbase/powerpersona-go/pkg/core"
)

var (
	configPath     string
	archetypesPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "powerpersona",
	Short: "Autonomous chat personas with long-term memory",
	Long: "Run chat personas that read a shared message board, reply, revise their plans and " +
		"accumulate memories. Configuration comes from a YAML/JSON file or from the environment.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML or JSON; default: environment and .env)")
	RootCmd.PersistentFlags().StringVarP(&archetypesPath, "archetypes", "a", "archetypes.yaml", "Archetype catalogue")
}

func loadConfig() (*core.Config, error) {
	if configPath == "" {
		return core.LoadConfigFromEnv()
	}
	return core.LoadConfig(configPath)
}

func loadCatalogue() (archetype.Catalogue, error) {
	return archetype.Load(archetypesPath)
}

// newLogger builds the process logger; the returned func closes its log file.
func newLogger(cfg *core.Config) (*log.Logger, func() error) {
	logger, closeFn, err := core.NewLogger(cfg.Log)
	if err != nil {
		exitErr("logger", err)
	}
	return logger, closeFn
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
