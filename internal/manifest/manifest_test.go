package manifest

import (
	"context"
	"strings"
	"testing"

	"github.com/stackwarden/stackwarden/internal/config"
)

const sampleManifest = `
services:
  db:
    image: postgres:16
    labels:
      stackwarden.critical: "true"
  app:
    image: example/app:latest
    labels:
      stackwarden.critical: "true"
      stackwarden.app_tier: "true"
  proxy:
    image: nginx:1.27
    labels:
      stackwarden.app_tier: "true"
      stackwarden.edge_proxy: "true"
  worker:
    image: example/worker:latest
    labels:
      stackwarden.auxiliary: "true"
  metrics:
    image: prom/node-exporter:latest
`

func TestDiscover(t *testing.T) {
	units, err := Discover(context.Background(), []byte(sampleManifest))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	if len(units) != 5 {
		t.Fatalf("expected 5 units, got %d", len(units))
	}

	byName := make(map[string]config.Unit, len(units))
	for _, unit := range units {
		byName[unit.Name] = unit
	}

	if !byName["db"].Critical {
		t.Fatalf("expected db critical, got %+v", byName["db"])
	}
	if !byName["app"].AppTier || !byName["app"].Critical {
		t.Fatalf("expected app critical app-tier, got %+v", byName["app"])
	}
	if !byName["proxy"].EdgeProxy {
		t.Fatalf("expected proxy edge-proxy, got %+v", byName["proxy"])
	}
	if !byName["worker"].Auxiliary {
		t.Fatalf("expected worker auxiliary, got %+v", byName["worker"])
	}
	unlabeled := byName["metrics"]
	if unlabeled.Critical || unlabeled.Auxiliary || unlabeled.AppTier || unlabeled.EdgeProxy {
		t.Fatalf("unlabeled service must carry no roles, got %+v", unlabeled)
	}
}

func TestDiscover_StableOrder(t *testing.T) {
	units, err := Discover(context.Background(), []byte(sampleManifest))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	for i := 1; i < len(units); i++ {
		if units[i-1].Name >= units[i].Name {
			t.Fatalf("units must be sorted by name, got %q before %q", units[i-1].Name, units[i].Name)
		}
	}
}

func TestDiscover_Errors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty body", "", "manifest body is empty"},
		{"no services", "services: {}\n", "no services"},
		{"bad label value", "services:\n  db:\n    image: postgres:16\n    labels:\n      stackwarden.critical: \"sometimes\"\n", "stackwarden.critical"},
		{"conflicting roles", "services:\n  db:\n    image: postgres:16\n    labels:\n      stackwarden.critical: \"true\"\n      stackwarden.auxiliary: \"true\"\n", "cannot be both"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Discover(context.Background(), []byte(tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
