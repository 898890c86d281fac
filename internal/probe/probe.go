package probe

import (
	"context"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Kind identifies the resource a reading describes.
type Kind string

const (
	KindDisk   Kind = "DISK"
	KindMemory Kind = "MEMORY"
)

// Reading is a normalized utilization sample, recomputed every invocation.
// PercentUsed is used/total rounded to the nearest integer, in [0,100].
type Reading struct {
	Kind        Kind
	PercentUsed int
}

// Prober reads host resource utilization.
type Prober interface {
	Disk(ctx context.Context, path string) (Reading, error)
	Memory(ctx context.Context) (Reading, error)
}

// HostProber samples the local host via gopsutil.
type HostProber struct{}

// NewHostProber returns a Prober backed by the local host.
func NewHostProber() *HostProber {
	return &HostProber{}
}

// Disk returns the utilization of the filesystem containing path.
func (p *HostProber) Disk(ctx context.Context, path string) (Reading, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Reading{Kind: KindDisk}, fmt.Errorf("disk usage %s: %w", path, err)
	}
	return Reading{Kind: KindDisk, PercentUsed: roundPercent(usage.UsedPercent)}, nil
}

// Memory returns the host's virtual memory utilization.
func (p *HostProber) Memory(ctx context.Context) (Reading, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Reading{Kind: KindMemory}, fmt.Errorf("memory usage: %w", err)
	}
	return Reading{Kind: KindMemory, PercentUsed: roundPercent(vm.UsedPercent)}, nil
}

func roundPercent(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
