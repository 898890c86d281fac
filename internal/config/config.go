package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envUnitsFile       = "SW_UNITS_FILE"
	envManifestPath    = "SW_MANIFEST_PATH"
	envDockerHost      = "SW_DOCKER_HOST"
	envHealthURL       = "SW_HEALTH_URL"
	envCertPath        = "SW_CERT_PATH"
	envCertRenewCmd    = "SW_CERT_RENEW_COMMAND"
	envRuntimeRestart  = "SW_RUNTIME_RESTART_COMMAND"
	envBackupDir       = "SW_BACKUP_DIR"
	envBackupPattern   = "SW_BACKUP_PATTERN"
	envBackupMaxAge    = "SW_BACKUP_MAX_AGE"
	envDiskPath        = "SW_DISK_PATH"
	envDiskWarn        = "SW_DISK_WARN_PERCENT"
	envDiskCrit        = "SW_DISK_CRIT_PERCENT"
	envMemoryWarn      = "SW_MEMORY_WARN_PERCENT"
	envCertWarnDays    = "SW_CERT_WARN_DAYS"
	envCertUrgentDays  = "SW_CERT_URGENT_DAYS"
	envSettleDelay     = "SW_SETTLE_DELAY"
	envProbeTimeout    = "SW_PROBE_TIMEOUT"
	envCycleTimeout    = "SW_CYCLE_TIMEOUT"
	envRestartCooldown = "SW_RESTART_COOLDOWN"
	envPruneRetention  = "SW_PRUNE_RETENTION"
	envPruneDirs       = "SW_PRUNE_DIRS"
	envWebhookURL      = "SW_WEBHOOK_URL"
	envSlackWebhookURL = "SW_SLACK_WEBHOOK_URL"
	envStateFile       = "SW_STATE_FILE"
	envLockFile        = "SW_LOCK_FILE"
	envPushgatewayURL  = "SW_PUSHGATEWAY_URL"
	envPushJobName     = "SW_PUSH_JOB_NAME"
	envDryRun          = "SW_DRY_RUN"
	envLogLevel        = "SW_LOG_LEVEL"
	envPrettyLog       = "SW_LOG_PRETTY"
)

const (
	defaultDockerHost      = "unix:///var/run/docker.sock"
	defaultDiskPath        = "/"
	defaultDiskWarn        = 80
	defaultDiskCrit        = 90
	defaultMemoryWarn      = 90
	defaultCertWarnDays    = 30
	defaultCertUrgentDays  = 7
	defaultBackupPattern   = "*.tar.gz"
	defaultBackupMaxAge    = 48 * time.Hour
	defaultSettleDelay     = 10 * time.Second
	defaultProbeTimeout    = 10 * time.Second
	defaultCycleTimeout    = 5 * time.Minute
	defaultRestartCooldown = 10 * time.Minute
	defaultPruneRetention  = 7 * 24 * time.Hour
	defaultPruneDirs       = "/var/log"
	defaultStateFile       = "/var/lib/stackwarden/state.json"
	defaultLockFile        = "/var/lib/stackwarden/stackwarden.lock"
	defaultPushJobName     = "stackwarden"
)

// Config describes runtime configuration loaded from the environment.
// All values are validated once at startup; a supervision cycle never
// re-reads or re-validates configuration.
type Config struct {
	UnitsFile    string
	ManifestPath string

	DockerHost string
	HealthURL  string

	CertPath              string
	CertRenewCommand      string
	RuntimeRestartCommand string

	BackupDir     string
	BackupPattern string
	BackupMaxAge  time.Duration

	DiskPath          string
	DiskWarnPercent   int
	DiskCritPercent   int
	MemoryWarnPercent int
	CertWarnDays      int
	CertUrgentDays    int

	SettleDelay     time.Duration
	ProbeTimeout    time.Duration
	CycleTimeout    time.Duration
	RestartCooldown time.Duration

	PruneRetention time.Duration
	PruneDirs      []string

	WebhookURL      string
	SlackWebhookURL string

	StateFile string
	LockFile  string

	PushgatewayURL string
	PushJobName    string

	DryRun    bool
	LogLevel  string
	PrettyLog bool
}

// Load reads configuration from environment variables and a local .env file
// if present. Existing environment variables take precedence over .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		DockerHost:        defaultDockerHost,
		BackupPattern:     defaultBackupPattern,
		BackupMaxAge:      defaultBackupMaxAge,
		DiskPath:          defaultDiskPath,
		DiskWarnPercent:   defaultDiskWarn,
		DiskCritPercent:   defaultDiskCrit,
		MemoryWarnPercent: defaultMemoryWarn,
		CertWarnDays:      defaultCertWarnDays,
		CertUrgentDays:    defaultCertUrgentDays,
		SettleDelay:       defaultSettleDelay,
		ProbeTimeout:      defaultProbeTimeout,
		CycleTimeout:      defaultCycleTimeout,
		RestartCooldown:   defaultRestartCooldown,
		PruneRetention:    defaultPruneRetention,
		PruneDirs:         splitList(defaultPruneDirs),
		StateFile:         defaultStateFile,
		LockFile:          defaultLockFile,
		PushJobName:       defaultPushJobName,
	}

	for _, s := range []struct {
		key  string
		dest *string
	}{
		{envUnitsFile, &cfg.UnitsFile},
		{envManifestPath, &cfg.ManifestPath},
		{envDockerHost, &cfg.DockerHost},
		{envHealthURL, &cfg.HealthURL},
		{envCertPath, &cfg.CertPath},
		{envCertRenewCmd, &cfg.CertRenewCommand},
		{envRuntimeRestart, &cfg.RuntimeRestartCommand},
		{envBackupDir, &cfg.BackupDir},
		{envBackupPattern, &cfg.BackupPattern},
		{envWebhookURL, &cfg.WebhookURL},
		{envSlackWebhookURL, &cfg.SlackWebhookURL},
		{envStateFile, &cfg.StateFile},
		{envLockFile, &cfg.LockFile},
		{envPushgatewayURL, &cfg.PushgatewayURL},
		{envPushJobName, &cfg.PushJobName},
		{envLogLevel, &cfg.LogLevel},
	} {
		if value, ok := lookupTrimmed(s.key); ok {
			*s.dest = value
		}
	}

	for _, d := range []struct {
		key  string
		dest *time.Duration
	}{
		{envBackupMaxAge, &cfg.BackupMaxAge},
		{envSettleDelay, &cfg.SettleDelay},
		{envProbeTimeout, &cfg.ProbeTimeout},
		{envCycleTimeout, &cfg.CycleTimeout},
		{envRestartCooldown, &cfg.RestartCooldown},
		{envPruneRetention, &cfg.PruneRetention},
	} {
		if value, ok := lookupTrimmed(d.key); ok {
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			if parsed <= 0 {
				return Config{}, fmt.Errorf("%s must be greater than zero", d.key)
			}
			*d.dest = parsed
		}
	}

	for _, p := range []struct {
		key      string
		dest     *int
		min, max int
		unit     string
	}{
		{envDiskWarn, &cfg.DiskWarnPercent, 1, 100, "a percentage between 1 and 100"},
		{envDiskCrit, &cfg.DiskCritPercent, 1, 100, "a percentage between 1 and 100"},
		{envMemoryWarn, &cfg.MemoryWarnPercent, 1, 100, "a percentage between 1 and 100"},
		{envCertWarnDays, &cfg.CertWarnDays, 1, 3650, "a day count between 1 and 3650"},
		{envCertUrgentDays, &cfg.CertUrgentDays, 1, 3650, "a day count between 1 and 3650"},
	} {
		if value, ok := lookupTrimmed(p.key); ok {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", p.key, err)
			}
			if parsed < p.min || parsed > p.max {
				return Config{}, fmt.Errorf("%s must be %s", p.key, p.unit)
			}
			*p.dest = parsed
		}
	}

	if value, ok := lookupTrimmed(envDiskPath); ok {
		cfg.DiskPath = value
	}
	if value, ok := lookupTrimmed(envPruneDirs); ok {
		cfg.PruneDirs = splitList(value)
	}
	if value, ok := lookupTrimmed(envDryRun); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = parsed
	}
	if value, ok := lookupTrimmed(envPrettyLog); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPrettyLog, err)
		}
		cfg.PrettyLog = parsed
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.UnitsFile == "" && cfg.ManifestPath == "" {
		return fmt.Errorf("one of %s or %s is required", envUnitsFile, envManifestPath)
	}
	if cfg.UnitsFile != "" && cfg.ManifestPath != "" {
		return fmt.Errorf("%s and %s are mutually exclusive", envUnitsFile, envManifestPath)
	}
	if cfg.HealthURL == "" {
		return fmt.Errorf("%s is required", envHealthURL)
	}
	if err := validateURL(cfg.HealthURL, envHealthURL); err != nil {
		return err
	}
	if cfg.DiskWarnPercent >= cfg.DiskCritPercent {
		return fmt.Errorf("%s must be below %s", envDiskWarn, envDiskCrit)
	}
	if cfg.CertUrgentDays >= cfg.CertWarnDays {
		return fmt.Errorf("%s must be below %s", envCertUrgentDays, envCertWarnDays)
	}
	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return err
		}
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return err
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := validateURL(cfg.PushgatewayURL, envPushgatewayURL); err != nil {
			return err
		}
	}
	if len(cfg.PruneDirs) == 0 {
		return fmt.Errorf("%s must name at least one directory", envPruneDirs)
	}
	return nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		result = append(result, part)
	}
	return result
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
