package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dtree/advisor"
	"dtree/communication"
	"dtree/communication/server"
	"dtree/evaluator"
	"dtree/layout"
	"dtree/metrics"
	"dtree/solver"
	"dtree/tree"
	"dtree/utils"
)

func (a *app) solveCmd() *cobra.Command {
	var step, paced bool
	var out, snapshot string

	cmd := &cobra.Command{
		Use:   "solve [tree.json|tree.yaml]",
		Short: "Evaluate a tree and print the calculation log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTree(args)
			if err != nil {
				return err
			}

			delay := a.cfg.PacingDelay
			if !paced {
				delay = 0
			}
			collector := metrics.NewCollector()
			c := solver.New(root, solver.WithDelay(delay), solver.WithMetrics(collector))

			var runs []metrics.SolveMetric
			if step {
				for c.Step() != solver.Solved {
					runs = append(runs, c.Metrics())
				}
				runs = append(runs, c.Metrics())
			} else {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := c.Auto(ctx); err != nil {
					return err
				}
				runs = append(runs, c.Metrics())
			}

			printResult(cmd.OutOrStdout(), c)

			if out != "" {
				if err := export(out, c.Log(), runs); err != nil {
					return err
				}
			}
			if snapshot != "" {
				if err := tree.WriteSnapshot(snapshot, c.Snapshot()); err != nil {
					return err
				}
				log.Info().Msgf("solved tree written to %s", snapshot)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&step, "step", false, "solve one node per step instead of one automatic replay")
	cmd.Flags().BoolVar(&paced, "paced", false, "wait the pacing delay between nodes")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for CSV exports of the log and run metrics")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write the solved tree to this file")
	return cmd
}

func printResult(w io.Writer, c *solver.Controller) {
	for i, entry := range c.Log() {
		fmt.Fprintf(w, "%2d. %-24s %s = %s\n", i+1, entry.NodeLabel, entry.Formula, utils.FormatAmount(entry.Result))
	}
	root := c.Snapshot()
	fmt.Fprintf(w, "EMV: %s\n", utils.FormatAmount(root.Result()))

	for _, warning := range c.Warnings() {
		fmt.Fprintf(w, "warning: probabilities of %q sum to %s\n", warning.Label, utils.FormatLiteral(warning.Sum))
	}

	node := root
	for node.Type == tree.Decision && !node.IsLeaf() {
		var best *tree.Node
		for _, child := range node.Children {
			if child.Optimal() {
				best = child
				break
			}
		}
		if best == nil {
			break
		}
		fmt.Fprintf(w, "choose %q at %q\n", best.Label, node.Label)
		node = best
	}
}

func export(dir string, entries []evaluator.LogEntry, runs []metrics.SolveMetric) error {
	writer, err := metrics.NewWriter(dir)
	if err != nil {
		return err
	}
	if err := writer.WriteCalculationLog(entries); err != nil {
		return err
	}
	if err := writer.WriteSolveMetrics(runs); err != nil {
		return err
	}
	log.Info().Msgf("exports written to %s", writer.Dir())
	return nil
}

func (a *app) layoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout [tree.json|tree.yaml]",
		Short: "Print node positions and connectors as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTree(args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(layout.Compute(root, a.cfg.Layout))
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [tree.json|tree.yaml]",
		Short: "Serve the HTTP and websocket API for a renderer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTree(args)
			if err != nil {
				return err
			}

			var analyzer advisor.Analyzer
			if client, err := advisor.NewOpenAI(a.cfg.Advisor.Options()); err == nil {
				analyzer = client
			} else {
				log.Warn().Err(err).Msg("advisor disabled")
			}

			collector := metrics.NewPrometheusCollector("dtree")
			engine := communication.NewEngine(root, a.cfg.Layout, analyzer,
				solver.WithDelay(a.cfg.PacingDelay),
				solver.WithMetrics(collector),
			)
			sc := server.NewServerCommunicator(engine, collector.Registry())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return sc.Start(ctx, a.cfg.Server.Addr)
			})
			g.Go(func() error {
				<-ctx.Done()
				engine.Close()
				return nil
			})
			return g.Wait()
		},
	}
}

func (a *app) adviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advise [tree.json|tree.yaml]",
		Short: "Solve a tree and ask the advisor for an analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadTree(args)
			if err != nil {
				return err
			}
			analyzer, err := advisor.NewOpenAI(a.cfg.Advisor.Options())
			if err != nil {
				return err
			}

			text, err := analyzer.Analyze(cmd.Context(), advisor.NewRequest(evaluator.Evaluate(root)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
