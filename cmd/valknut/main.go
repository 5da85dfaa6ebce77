// Command valknut is the thin CLI front end over internal/pipeline: it loads
// configuration, runs the full analysis pipeline over one or more roots, and
// prints the resulting AnalysisResults as JSON (or a pass/fail exit code
// when --quality-gate is set).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/sibyllinesoft/valknut/internal/config"
	"github.com/sibyllinesoft/valknut/internal/pipeline"
	"github.com/sibyllinesoft/valknut/internal/version"
	"github.com/sibyllinesoft/valknut/internal/vlog"
)

func main() {
	app := &cli.App{
		Name:    "valknut",
		Usage:   "static code analysis: complexity, clone detection, coverage gaps, cohesion, structure",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a valknut config YAML file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "valknut:", err)
		os.Exit(1)
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "run the full analysis pipeline over one or more roots",
		ArgsUsage: "<root> [root...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quality-gate", Usage: "exit non-zero if the configured quality gates fail"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write JSON results to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				vlog.SetOutput(os.Stderr)
				vlog.SetLevel(zapcore.DebugLevel)
			}

			roots := c.Args().Slice()
			if len(roots) == 0 {
				roots = []string{"."}
			}

			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}

			orch, err := pipeline.New(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			results, err := orch.Run(ctx, roots)
			if err != nil {
				return err
			}

			if err := writeResults(c.String("output"), results); err != nil {
				return err
			}

			if c.Bool("quality-gate") && !results.QualityGate.Passed {
				return cli.Exit("quality gate failed", 2)
			}
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func writeResults(path string, results *pipeline.AnalysisResults) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}
