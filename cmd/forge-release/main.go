// Command forge-release runs the tag-triggered release pipeline.
//
// It has three modes: "run" executes a single release for a tag in an
// existing checkout, "serve" starts the webhook daemon, and "check"
// evaluates the pre-release gate for a tag without running anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/gate"
	"github.com/input-output-hk/catalyst-forge-release/metrics"
	"github.com/input-output-hk/catalyst-forge-release/pipeline"
	"github.com/input-output-hk/catalyst-forge-release/server"
	"github.com/input-output-hk/catalyst-forge-release/store"
)

const usage = `Usage: forge-release <command> [flags]

Commands:
  run    execute a release for a tag in an existing checkout
  serve  start the webhook daemon
  check  evaluate the pre-release gate for a tag

Run "forge-release <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:], logger)
	case "serve":
		err = serveCmd(os.Args[2:], logger)
	case "check":
		err = checkCmd(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("forge-release failed", "error", err)
		os.Exit(1)
	}
}

// runCmd executes one release run and exits non-zero if it fails. A gate
// halt is a normal outcome, not a failure.
func runCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the pipeline definition")
	repoPath := fs.String("repo", ".", "path to the project checkout")
	tag := fs.String("tag", "", "version tag to release (required)")
	triggeredBy := fs.String("triggered-by", "cli", "who initiated the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tag == "" {
		fs.Usage()
		return fmt.Errorf("run: -tag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	engine, journal, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	if journal != nil {
		defer journal.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := engine.Run(ctx, pipeline.RunRequest{
		RepoPath:    *repoPath,
		Tag:         *tag,
		TriggeredBy: *triggeredBy,
		TriggerType: "manual",
	})
	if err != nil {
		return err
	}

	switch run.Status {
	case domain.StatusHalted:
		fmt.Printf("release %s halted: %s\n", run.Tag, run.HaltReason)
	default:
		fmt.Printf("release %s finished with status %s\n", run.Tag, run.Status.String())
	}
	return nil
}

// serveCmd runs the webhook daemon until interrupted.
func serveCmd(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the pipeline definition")
	addr := fs.String("addr", "", "listen address (overrides the pipeline definition)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	engine, journal, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	if journal != nil {
		defer journal.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemon := server.New(cfg, engine, engine.Matcher(), journal, logger)
	return daemon.Run(ctx)
}

// checkCmd evaluates the pre-release gate for a tag. It exits non-zero
// when the gate would halt, so it can guard scripted release steps.
func checkCmd(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the pipeline definition")
	tag := fs.String("tag", "", "version tag to check (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tag == "" {
		fs.Usage()
		return fmt.Errorf("check: -tag is required")
	}

	// The gate works without a pipeline definition; configuration only
	// customizes the pre-release markers.
	g := gate.New()
	if cfg, err := config.Load(*configPath); err == nil {
		g = cfg.NewGate()
	} else if *configPath != "" {
		return err
	}

	decision := g.Check(*tag)
	if decision.Outcome == gate.Halt {
		fmt.Printf("halt: %s\n", decision.Reason)
		os.Exit(1)
	}
	fmt.Printf("proceed: %s is a stable release tag\n", *tag)
	return nil
}

// buildEngine wires the run journal and metrics into a release engine.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*pipeline.Engine, *store.Store, error) {
	var journal *store.Store
	if cfg.Store.Path != "" {
		opened, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		journal = opened
	}

	engine, err := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithStore(journal),
		pipeline.WithMetrics(metrics.New(nil)),
	)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, nil, err
	}
	return engine, journal, nil
}
