// Package manifest discovers supervised units from the deployment's own
// compose file, so the supervisor does not need a separately maintained
// unit list when one source of truth already exists.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"

	"github.com/stackwarden/stackwarden/internal/config"
)

// Role labels recognized on compose services. Values parse as booleans;
// an unlabeled service is supervised with no special role.
const (
	labelCritical  = "stackwarden.critical"
	labelAuxiliary = "stackwarden.auxiliary"
	labelAppTier   = "stackwarden.app_tier"
	labelEdgeProxy = "stackwarden.edge_proxy"
)

// DiscoverFile reads a compose file from disk and returns its units.
func DiscoverFile(ctx context.Context, path string) ([]config.Unit, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Discover(ctx, body)
}

// Discover parses compose content into supervised unit definitions.
func Discover(ctx context.Context, body []byte) ([]config.Unit, error) {
	if len(body) == 0 {
		return nil, errors.New("manifest body is empty")
	}

	details := types.ConfigDetails{
		WorkingDir: ".",
		ConfigFiles: []types.ConfigFile{
			{
				Filename: "compose.yml",
				Content:  body,
			},
		},
		Environment: types.Mapping{},
	}

	project, err := loader.LoadWithContext(ctx, details, func(opts *loader.Options) {
		opts.SetProjectName("stackwarden", false)
	})
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	if len(project.Services) == 0 {
		return nil, errors.New("manifest has no services")
	}

	units := make([]config.Unit, 0, len(project.Services))
	for name, service := range project.Services {
		unit := config.Unit{Name: name}

		for _, role := range []struct {
			label string
			dest  *bool
		}{
			{labelCritical, &unit.Critical},
			{labelAuxiliary, &unit.Auxiliary},
			{labelAppTier, &unit.AppTier},
			{labelEdgeProxy, &unit.EdgeProxy},
		} {
			value, ok := service.Labels[role.label]
			if !ok {
				continue
			}
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("service %q: label %s: %w", name, role.label, err)
			}
			*role.dest = parsed
		}

		units = append(units, unit)
	}

	// Compose maps are unordered; sort for a stable check order.
	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})

	if err := config.ValidateUnits(units); err != nil {
		return nil, err
	}

	return units, nil
}
