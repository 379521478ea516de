package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

func TestLoadDefaultFleet(t *testing.T) {
	def, err := Load("")
	require.NoError(t, err)

	assert.Len(t, def.Locations, 6)
	assert.Len(t, def.Contracts, 6)
	assert.Len(t, def.Devices, 13)

	reg := NewRegistry(def)
	assert.Equal(t, 13, reg.Len())
	assert.Len(t, reg.ByType(models.DeviceMiner), 7)
	assert.Len(t, reg.ByType(models.DeviceAIServer), 4)
	assert.Len(t, reg.ByType(models.DeviceBattery), 2)
	assert.InDelta(t, 24000, reg.TotalHashRate(), 1e-9)

	texas := reg.ByLocation("texas")
	require.Len(t, texas, 4)
	assert.Equal(t, "btc-texas-1", texas[0].ID)

	c := reg.Contracts()["texas"]
	assert.InDelta(t, 0.065, c.Price, 1e-12)
	assert.Equal(t, []string{"texas", "california", "newyork", "florida", "georgia", "tennessee"}, reg.LocationIDs())
}

func TestParseDefaults(t *testing.T) {
	def, err := Parse([]byte(`
locations: [{id: a, name: A, rate: 0.1}]
contracts: [{location: a, price: 0.05}]
devices:
  - {id: b1, type: battery, location: a, capacity: 10}
  - {id: g1, type: ai_server, location: a, gpu_count: 4}
`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusStandby, def.Devices[0].Status)
	assert.Equal(t, models.StatusActive, def.Devices[1].Status)
	assert.Equal(t, models.TierH200, def.Devices[1].ComputeTier)
}

func TestParseRejectsBadFleets(t *testing.T) {
	cases := map[string]string{
		"no devices":        `locations: [{id: a}]`,
		"unknown type":      "locations: [{id: a}]\ncontracts: [{location: a, price: 0.05}]\ndevices: [{id: x, type: rig, location: a}]",
		"unknown location":  "locations: [{id: a}]\ncontracts: [{location: a, price: 0.05}]\ndevices: [{id: x, type: miner, location: b}]",
		"no contract":       "locations: [{id: a}, {id: b}]\ncontracts: [{location: a, price: 0.05}]\ndevices: [{id: x, type: miner, location: b}]",
		"duplicate device":  "locations: [{id: a}]\ncontracts: [{location: a, price: 0.05}]\ndevices: [{id: x, type: miner, location: a}, {id: x, type: miner, location: a}]",
		"zero price":        "locations: [{id: a}]\ncontracts: [{location: a, price: 0}]\ndevices: [{id: x, type: miner, location: a}]",
		"contract orphaned": "locations: [{id: a}]\ncontracts: [{location: z, price: 0.05}]\ndevices: [{id: x, type: miner, location: a}]",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	def, err := Load("")
	require.NoError(t, err)
	reg := NewRegistry(def)

	d, ok := reg.Get("battery-texas-1")
	require.True(t, ok)
	d.Advisory = &models.Advisory{Confidence: 0.8}

	snap := reg.Snapshot()
	snap[3].Status = models.StatusActive
	snap[3].Advisory.Confidence = 0.1

	assert.Equal(t, models.StatusStandby, d.Status)
	assert.InDelta(t, 0.8, d.Advisory.Confidence, 1e-12)
}

func TestRegistryDoesNotAliasDefinition(t *testing.T) {
	def, err := Load("")
	require.NoError(t, err)
	reg := NewRegistry(def)

	def.Devices[0].HashRate = 1
	d, _ := reg.Get(def.Devices[0].ID)
	assert.InDelta(t, 5000, d.HashRate, 1e-9)
}
