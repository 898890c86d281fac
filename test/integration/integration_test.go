//go:build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stackwarden/stackwarden/internal/manifest"
	"github.com/stackwarden/stackwarden/internal/runtime"
)

const sampleManifest = `
services:
  app:
    image: nginx:alpine
    labels:
      stackwarden.app_tier: "true"
`

// TestIntegrationDockerRuntime verifies manifest discovery and runtime
// access against a real Docker daemon.
//
// Prerequisites:
//   - Docker daemon reachable over TCP (e.g. a socket proxy on :2375)
//
// Run with: go test -tags=integration -v ./test/integration/...
func TestIntegrationDockerRuntime(t *testing.T) {
	dockerHost := getEnv("TEST_DOCKER_HOST", "tcp://localhost:2375")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingURL := "http://" + strings.TrimPrefix(dockerHost, "tcp://") + "/_ping"
	if err := checkEndpoint(ctx, pingURL); err != nil {
		t.Skipf("docker daemon not reachable: %v", err)
	}

	t.Run("ManifestDiscovery", func(t *testing.T) {
		units, err := manifest.Discover(context.Background(), []byte(sampleManifest))
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(units) != 1 || !units[0].AppTier {
			t.Fatalf("unexpected units %v", units)
		}
	})

	t.Run("RuntimePing", func(t *testing.T) {
		client, err := runtime.NewDockerClient(dockerHost, 10*time.Second)
		if err != nil {
			t.Fatalf("create runtime client: %v", err)
		}
		defer client.Close()

		if err := client.Ping(context.Background()); err != nil {
			t.Fatalf("runtime ping: %v", err)
		}
	})

	t.Run("ListUnits", func(t *testing.T) {
		client, err := runtime.NewDockerClient(dockerHost, 10*time.Second)
		if err != nil {
			t.Fatalf("create runtime client: %v", err)
		}
		defer client.Close()

		units, err := client.ListUnits(context.Background())
		if err != nil {
			t.Fatalf("list units: %v", err)
		}
		t.Logf("Found %d containers", len(units))
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func checkEndpoint(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}
