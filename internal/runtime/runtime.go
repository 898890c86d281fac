package runtime

import "context"

// Liveness describes whether a unit's container is currently running,
// independent of application-level correctness.
type Liveness string

const (
	LivenessUp      Liveness = "UP"
	LivenessDown    Liveness = "DOWN"
	LivenessUnknown Liveness = "UNKNOWN"
)

// Health is the runtime-reported health probe signal for a unit.
// HealthNone means the unit has no probe configured and liveness alone
// determines severity.
type Health string

const (
	HealthHealthy   Health = "HEALTHY"
	HealthUnhealthy Health = "UNHEALTHY"
	HealthNone      Health = "NONE"
)

// UnitState is a point-in-time view of a unit, read from the runtime at
// check time and never cached across invocations.
type UnitState struct {
	Name     string
	Liveness Liveness
	Health   Health
}

// Client defines the capability set the supervisor needs from the
// container runtime. Any runtime satisfying this contract is acceptable;
// the interface exists so checks can run against fakes in tests.
type Client interface {
	// Ping validates connectivity to the runtime daemon.
	Ping(ctx context.Context) error

	// ListUnits returns the state of all known units.
	ListUnits(ctx context.Context) ([]UnitState, error)

	// UnitStatus returns the state of a single named unit. A unit with no
	// matching container reports LivenessDown, not an error.
	UnitStatus(ctx context.Context, name string) (UnitState, error)

	// Restart restarts the named unit. Restarting a running unit is a
	// no-op-equivalent per the runtime contract; restarting a stopped
	// unit starts it.
	Restart(ctx context.Context, name string) error

	// PruneArtifacts runs the runtime's garbage collection (stopped
	// containers, dangling images, build cache) and reports the bytes
	// reclaimed.
	PruneArtifacts(ctx context.Context) (uint64, error)

	// Close releases resources associated with the client.
	Close() error
}
