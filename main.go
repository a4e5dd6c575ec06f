package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dtree/config"
	"dtree/tree"
)

type app struct {
	configPath string
	cfg        config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "dtree",
		Short:        "Evaluate and replay decision trees",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly})
			zerolog.SetGlobalLevel(cfg.Level())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		a.solveCmd(),
		a.layoutCmd(),
		a.serveCmd(),
		a.adviseCmd(),
	)
	return root
}

// loadTree reads the snapshot named by args, or the built-in example.
func loadTree(args []string) (*tree.Node, error) {
	if len(args) == 0 {
		log.Info().Msg("no tree given, using the example")
		return tree.Example(), nil
	}
	return tree.ReadSnapshot(args[0])
}
