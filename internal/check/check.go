package check

import "github.com/rs/zerolog"

// Severity classifies a check outcome.
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Level maps a severity to the zerolog level used when reporting it.
func (s Severity) Level() zerolog.Level {
	switch s {
	case SeverityCritical:
		return zerolog.ErrorLevel
	case SeverityWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Result is the outcome of a single check within one supervision cycle.
// Results are constructed fresh each invocation and never persisted.
type Result struct {
	Name               string
	Severity           Severity
	Message            string
	RemediationApplied bool
}

// Escalates reports whether the result must be handed to the notifier.
func (r Result) Escalates() bool {
	return r.Severity == SeverityWarning || r.Severity == SeverityCritical
}

// LogTo writes the result to the logger at the severity's level.
func (r Result) LogTo(logger zerolog.Logger) {
	logger.WithLevel(r.Severity.Level()).
		Str("check", r.Name).
		Str("severity", string(r.Severity)).
		Bool("remediation_applied", r.RemediationApplied).
		Msg(r.Message)
}
