package config

import (
	"strings"
	"testing"
	"time"
)

var allEnvKeys = []string{
	envUnitsFile, envManifestPath, envDockerHost, envHealthURL,
	envCertPath, envCertRenewCmd, envRuntimeRestart,
	envBackupDir, envBackupPattern, envBackupMaxAge,
	envDiskPath, envDiskWarn, envDiskCrit, envMemoryWarn,
	envCertWarnDays, envCertUrgentDays,
	envSettleDelay, envProbeTimeout, envCycleTimeout, envRestartCooldown,
	envPruneRetention, envPruneDirs,
	envWebhookURL, envSlackWebhookURL,
	envStateFile, envLockFile,
	envPushgatewayURL, envPushJobName,
	envDryRun, envLogLevel, envPrettyLog,
}

// setEnv clears every supervisor variable, then applies the given values.
// Empty values read as unset.
func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
	}
	for key, value := range values {
		t.Setenv(key, value)
	}
}

func minimalEnv() map[string]string {
	return map[string]string{
		envUnitsFile: "/etc/stackwarden/units.yaml",
		envHealthURL: "https://example.com/healthz",
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, minimalEnv())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DockerHost != "unix:///var/run/docker.sock" {
		t.Fatalf("unexpected docker host %q", cfg.DockerHost)
	}
	if cfg.DiskWarnPercent != 80 || cfg.DiskCritPercent != 90 {
		t.Fatalf("unexpected disk thresholds %d/%d", cfg.DiskWarnPercent, cfg.DiskCritPercent)
	}
	if cfg.MemoryWarnPercent != 90 {
		t.Fatalf("unexpected memory threshold %d", cfg.MemoryWarnPercent)
	}
	if cfg.CertWarnDays != 30 || cfg.CertUrgentDays != 7 {
		t.Fatalf("unexpected cert thresholds %d/%d", cfg.CertWarnDays, cfg.CertUrgentDays)
	}
	if cfg.BackupMaxAge != 48*time.Hour {
		t.Fatalf("unexpected backup max age %s", cfg.BackupMaxAge)
	}
	if cfg.SettleDelay != 10*time.Second {
		t.Fatalf("unexpected settle delay %s", cfg.SettleDelay)
	}
	if cfg.RestartCooldown != 10*time.Minute {
		t.Fatalf("unexpected restart cooldown %s", cfg.RestartCooldown)
	}
	if cfg.CycleTimeout != 5*time.Minute {
		t.Fatalf("unexpected cycle timeout %s", cfg.CycleTimeout)
	}
	if len(cfg.PruneDirs) != 1 || cfg.PruneDirs[0] != "/var/log" {
		t.Fatalf("unexpected prune dirs %v", cfg.PruneDirs)
	}
	if cfg.DryRun {
		t.Fatalf("dry run must default off")
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := minimalEnv()
	env[envDiskWarn] = "70"
	env[envDiskCrit] = "85"
	env[envBackupMaxAge] = "24h"
	env[envPruneDirs] = "/var/log, /srv/app/logs"
	env[envDryRun] = "true"
	env[envLogLevel] = "debug"
	env[envCertRenewCmd] = "certbot renew --force-renewal"
	setEnv(t, env)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DiskWarnPercent != 70 || cfg.DiskCritPercent != 85 {
		t.Fatalf("override ignored: %d/%d", cfg.DiskWarnPercent, cfg.DiskCritPercent)
	}
	if cfg.BackupMaxAge != 24*time.Hour {
		t.Fatalf("unexpected backup max age %s", cfg.BackupMaxAge)
	}
	if len(cfg.PruneDirs) != 2 || cfg.PruneDirs[1] != "/srv/app/logs" {
		t.Fatalf("unexpected prune dirs %v", cfg.PruneDirs)
	}
	if !cfg.DryRun {
		t.Fatalf("expected dry run on")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.CertRenewCommand != "certbot renew --force-renewal" {
		t.Fatalf("unexpected renew command %q", cfg.CertRenewCommand)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(env map[string]string)
		wantErr string
	}{
		{
			"missing unit source",
			func(env map[string]string) { delete(env, envUnitsFile) },
			"is required",
		},
		{
			"both unit sources",
			func(env map[string]string) { env[envManifestPath] = "/srv/app/docker-compose.yml" },
			"mutually exclusive",
		},
		{
			"missing health url",
			func(env map[string]string) { delete(env, envHealthURL) },
			envHealthURL + " is required",
		},
		{
			"health url without scheme",
			func(env map[string]string) { env[envHealthURL] = "example.com/healthz" },
			"scheme and host",
		},
		{
			"disk warn above crit",
			func(env map[string]string) { env[envDiskWarn] = "95" },
			"must be below",
		},
		{
			"disk warn equals crit",
			func(env map[string]string) { env[envDiskWarn] = "90" },
			"must be below",
		},
		{
			"cert urgent above warn",
			func(env map[string]string) { env[envCertUrgentDays] = "45" },
			"must be below",
		},
		{
			"disk warn out of range",
			func(env map[string]string) { env[envDiskWarn] = "0" },
			"percentage",
		},
		{
			"disk warn not a number",
			func(env map[string]string) { env[envDiskWarn] = "lots" },
			"invalid " + envDiskWarn,
		},
		{
			"negative settle delay",
			func(env map[string]string) { env[envSettleDelay] = "-5s" },
			"greater than zero",
		},
		{
			"malformed duration",
			func(env map[string]string) { env[envCycleTimeout] = "five minutes" },
			"invalid " + envCycleTimeout,
		},
		{
			"bad webhook url",
			func(env map[string]string) { env[envWebhookURL] = "not a url at all\x7f" },
			"invalid " + envWebhookURL,
		},
		{
			"bad dry run flag",
			func(env map[string]string) { env[envDryRun] = "maybe" },
			"invalid " + envDryRun,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := minimalEnv()
			tc.mutate(env)
			setEnv(t, env)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
