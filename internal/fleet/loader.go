package fleet

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

//go:embed fleet.yaml
var defaultFleet []byte

// Definition is the on-disk fleet shape (YAML).
type Definition struct {
	Locations []models.Location       `yaml:"locations"`
	Contracts []models.EnergyContract `yaml:"contracts"`
	Devices   []models.Device         `yaml:"devices"`
}

// Load reads a fleet file. An empty path loads the built-in fleet.
func Load(path string) (*Definition, error) {
	raw := defaultFleet
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fleet file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse fleet: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate rejects definitions the pipeline cannot settle: every device
// must sit in a known location that has a contract.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.New("fleet definition is nil")
	}
	if len(d.Devices) == 0 {
		return errors.New("fleet has no devices")
	}

	locs := make(map[string]bool, len(d.Locations))
	for _, l := range d.Locations {
		if l.ID == "" {
			return errors.New("location with empty id")
		}
		if locs[l.ID] {
			return fmt.Errorf("duplicate location %q", l.ID)
		}
		locs[l.ID] = true
	}

	contracts := make(map[string]bool, len(d.Contracts))
	for _, c := range d.Contracts {
		if !locs[c.Location] {
			return fmt.Errorf("contract for unknown location %q", c.Location)
		}
		if contracts[c.Location] {
			return fmt.Errorf("duplicate contract for %q", c.Location)
		}
		if c.Price <= 0 {
			return fmt.Errorf("contract %q: price must be positive", c.Location)
		}
		contracts[c.Location] = true
	}

	ids := make(map[string]bool, len(d.Devices))
	for i := range d.Devices {
		dev := &d.Devices[i]
		if dev.ID == "" {
			return fmt.Errorf("device %d has empty id", i)
		}
		if ids[dev.ID] {
			return fmt.Errorf("duplicate device %q", dev.ID)
		}
		ids[dev.ID] = true

		switch dev.Type {
		case models.DeviceMiner, models.DeviceAIServer, models.DeviceBattery:
		default:
			return fmt.Errorf("device %q: unknown type %q", dev.ID, dev.Type)
		}
		if !locs[dev.Location] {
			return fmt.Errorf("device %q: unknown location %q", dev.ID, dev.Location)
		}
		if !contracts[dev.Location] {
			return fmt.Errorf("device %q: location %q has no contract", dev.ID, dev.Location)
		}

		if dev.Status == "" {
			dev.Status = models.StatusActive
			if dev.Type == models.DeviceBattery {
				dev.Status = models.StatusStandby
			}
		}
		if dev.Type == models.DeviceAIServer && dev.ComputeTier == "" {
			dev.ComputeTier = models.TierH200
		}
	}
	return nil
}
