package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Unit describes a single supervised service unit.
// Critical units (database, application tier) are never auto-restarted for
// memory pressure; auxiliary units are the ones memory remediation may touch.
type Unit struct {
	Name      string `yaml:"name"`
	Critical  bool   `yaml:"critical,omitempty"`
	Auxiliary bool   `yaml:"auxiliary,omitempty"`
	// AppTier marks units restarted when the connectivity probe fails
	// (application tier and edge proxy).
	AppTier bool `yaml:"app_tier,omitempty"`
	// EdgeProxy marks the unit reloaded after a forced certificate renewal.
	EdgeProxy bool `yaml:"edge_proxy,omitempty"`
}

// UnitsFile is the parsed YAML structure listing supervised units:
// units: [{name, critical, auxiliary, app_tier, edge_proxy}]
type UnitsFile struct {
	Units []Unit `yaml:"units"`
}

// LoadUnitsFile parses a YAML units file from the given path.
func LoadUnitsFile(path string) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read units file: %w", err)
	}

	var uf UnitsFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, fmt.Errorf("parse units file: %w", err)
	}

	if err := ValidateUnits(uf.Units); err != nil {
		return nil, err
	}

	return uf.Units, nil
}

// ValidateUnits ensures unit definitions are usable.
func ValidateUnits(units []Unit) error {
	if len(units) == 0 {
		return fmt.Errorf("no units defined")
	}

	seen := make(map[string]bool)
	for i, u := range units {
		if u.Name == "" {
			return fmt.Errorf("unit %d: name is required", i)
		}
		if seen[u.Name] {
			return fmt.Errorf("unit %q: duplicate name", u.Name)
		}
		if u.Critical && u.Auxiliary {
			return fmt.Errorf("unit %q: cannot be both critical and auxiliary", u.Name)
		}
		seen[u.Name] = true
	}

	return nil
}

// AuxiliaryUnits returns the units eligible for memory-pressure restarts.
func AuxiliaryUnits(units []Unit) []Unit {
	var result []Unit
	for _, u := range units {
		if u.Auxiliary {
			result = append(result, u)
		}
	}
	return result
}

// AppTierUnits returns the units restarted on connectivity failure.
func AppTierUnits(units []Unit) []Unit {
	var result []Unit
	for _, u := range units {
		if u.AppTier || u.EdgeProxy {
			result = append(result, u)
		}
	}
	return result
}

// EdgeProxyUnits returns the units reloaded after certificate renewal.
func EdgeProxyUnits(units []Unit) []Unit {
	var result []Unit
	for _, u := range units {
		if u.EdgeProxy {
			result = append(result, u)
		}
	}
	return result
}
