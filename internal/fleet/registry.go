package fleet

import "github.com/kjannette/fleetsim-backend/internal/models"

// Registry holds the fleet's devices and contracts. It applies no business
// rules. The device set is fixed at construction; pipeline stages mutate
// fields through the pointers it hands out, readers get Snapshot copies.
type Registry struct {
	devices   []*models.Device
	byID      map[string]*models.Device
	contracts map[string]models.EnergyContract
	order     []string // contract locations in definition order
	locations []models.Location
}

func NewRegistry(def *Definition) *Registry {
	r := &Registry{
		byID:      make(map[string]*models.Device, len(def.Devices)),
		contracts: make(map[string]models.EnergyContract, len(def.Contracts)),
		locations: append([]models.Location(nil), def.Locations...),
	}
	for i := range def.Devices {
		d := def.Devices[i].Clone()
		r.devices = append(r.devices, &d)
		r.byID[d.ID] = &d
	}
	for _, c := range def.Contracts {
		r.contracts[c.Location] = c
		r.order = append(r.order, c.Location)
	}
	return r
}

func (r *Registry) All() []*models.Device {
	return append([]*models.Device(nil), r.devices...)
}

func (r *Registry) ByLocation(id string) []*models.Device {
	var out []*models.Device
	for _, d := range r.devices {
		if d.Location == id {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) ByType(t models.DeviceType) []*models.Device {
	var out []*models.Device
	for _, d := range r.devices {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) Get(id string) (*models.Device, bool) {
	d, ok := r.byID[id]
	return d, ok
}

func (r *Registry) Len() int { return len(r.devices) }

// Contracts returns the contract table keyed by location. The map is a copy.
func (r *Registry) Contracts() map[string]models.EnergyContract {
	out := make(map[string]models.EnergyContract, len(r.contracts))
	for k, v := range r.contracts {
		out[k] = v
	}
	return out
}

// ContractList returns contracts in definition order.
func (r *Registry) ContractList() []models.EnergyContract {
	out := make([]models.EnergyContract, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.contracts[id])
	}
	return out
}

// LocationIDs returns contract locations in definition order.
func (r *Registry) LocationIDs() []string {
	return append([]string(nil), r.order...)
}

// InitialLocations returns the markets as loaded, before any tick.
func (r *Registry) InitialLocations() []models.Location {
	return append([]models.Location(nil), r.locations...)
}

// TotalHashRate sums the hash rate of every miner.
func (r *Registry) TotalHashRate() float64 {
	var total float64
	for _, d := range r.devices {
		if d.Type == models.DeviceMiner {
			total += d.HashRate
		}
	}
	return total
}

// Snapshot deep-copies every device.
func (r *Registry) Snapshot() []models.Device {
	out := make([]models.Device, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.Clone()
	}
	return out
}
