package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/stackwarden/stackwarden/internal/checks"
	"github.com/stackwarden/stackwarden/internal/config"
	"github.com/stackwarden/stackwarden/internal/logging"
	"github.com/stackwarden/stackwarden/internal/manifest"
	"github.com/stackwarden/stackwarden/internal/metrics"
	"github.com/stackwarden/stackwarden/internal/notify"
	"github.com/stackwarden/stackwarden/internal/probe"
	"github.com/stackwarden/stackwarden/internal/remedy"
	"github.com/stackwarden/stackwarden/internal/runtime"
	"github.com/stackwarden/stackwarden/internal/state"
	"github.com/stackwarden/stackwarden/internal/supervisor"
)

func main() {
	os.Exit(run())
}

// run performs one supervision cycle. The exit code is 0 by design even
// when checks degrade: degraded conditions are reported through the
// notifier, not through process failure. Only a process that cannot
// start (configuration, collaborators) exits non-zero.
func run() int {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("configuration invalid")
		return 1
	}
	logger = logging.NewWithLevel(cfg.LogLevel)
	if cfg.PrettyLog {
		logger = logging.NewPretty().Level(logger.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancel()

	units, err := loadUnits(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("unit definitions invalid")
		return 1
	}

	lock, err := state.Acquire(cfg.LockFile)
	if err != nil {
		if errors.Is(err, state.ErrLocked) {
			logger.Info().Err(err).Msg("skipping cycle")
			return 0
		}
		logger.Error().Err(err).Msg("failed to acquire run lock")
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	runtimeClient, err := runtime.NewDockerClient(cfg.DockerHost, cfg.ProbeTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize runtime client")
		return 1
	}
	defer runtimeClient.Close()

	store := state.NewFileStore(cfg.StateFile, logger)
	actions := remedy.New(logger, runtimeClient, store, cfg.RestartCooldown,
		remedy.WithRenewCommand(cfg.CertRenewCommand),
		remedy.WithRuntimeRestartCommand(cfg.RuntimeRestartCommand),
		remedy.WithPrunePolicy(cfg.PruneDirs, cfg.PruneRetention),
		remedy.WithDryRun(cfg.DryRun),
	)

	collectors := metrics.New(cfg.PushgatewayURL, cfg.PushJobName)

	sup := supervisor.New(logger, runtimeClient, cfg.SettleDelay,
		supervisor.WithCheckers(buildCheckers(logger, cfg, units, runtimeClient, actions)...),
		supervisor.WithNotifier(buildNotifier(logger, cfg)),
		supervisor.WithRuntimeRestarter(actions),
		supervisor.WithMetrics(collectors),
	)

	sup.RunCycle(ctx)

	if err := collectors.Push(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics push failed")
	}

	return 0
}

func loadUnits(ctx context.Context, cfg config.Config) ([]config.Unit, error) {
	if cfg.ManifestPath != "" {
		return manifest.DiscoverFile(ctx, cfg.ManifestPath)
	}
	return config.LoadUnitsFile(cfg.UnitsFile)
}

func buildCheckers(logger zerolog.Logger, cfg config.Config, units []config.Unit, runtimeClient runtime.Client, actions *remedy.Actions) []supervisor.Checker {
	prober := probe.NewHostProber()

	checkers := []supervisor.Checker{
		checks.NewLivenessCheck(logger, runtimeClient, actions, units, cfg.SettleDelay, nil),
		checks.NewResourceCheck(logger, prober, actions, actions, cfg, units),
		checks.NewConnectivityCheck(logger, cfg, actions, units, nil),
	}
	if cfg.CertPath != "" {
		checkers = append(checkers, checks.NewCertCheck(logger, cfg, actions, actions, units, nil))
	} else {
		logger.Info().Msg("certificate path not configured; certificate check disabled")
	}
	if cfg.BackupDir != "" {
		checkers = append(checkers, checks.NewBackupCheck(logger, cfg, nil))
	} else {
		logger.Info().Msg("backup directory not configured; backup check disabled")
	}
	return checkers
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) notify.Notifier {
	if cfg.DryRun {
		return notify.NewDryRunNotifier(logger)
	}
	return notify.NewMultiNotifier(
		notify.NewWebhookNotifier(logger, cfg.WebhookURL),
		notify.NewSlackNotifier(logger, cfg.SlackWebhookURL),
	)
}
