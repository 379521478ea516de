package models

type DeviceType string

const (
	DeviceMiner    DeviceType = "miner"
	DeviceAIServer DeviceType = "ai_server"
	DeviceBattery  DeviceType = "battery"
)

type DeviceStatus string

const (
	StatusActive  DeviceStatus = "active"
	StatusStandby DeviceStatus = "standby"
)

// Miner display labels. They never gate whether a miner runs.
const (
	LabelProfitable = "profitable"
	LabelMonitoring = "monitoring"
)

// Location is one electricity market. Rates are currency per kWh; demand,
// supply, renewable share and grid stability are percentages.
type Location struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	GridRate       float64 `json:"currentRate" yaml:"rate"`
	Demand         float64 `json:"demand" yaml:"demand"`
	Supply         float64 `json:"supply" yaml:"supply"`
	RenewableShare float64 `json:"renewablePercentage" yaml:"renewable_share"`
	GridStability  float64 `json:"gridStability" yaml:"grid_stability"`
	IsPeakHour     bool    `json:"isPeakHour" yaml:"-"`
}

// EnergyContract is a fixed-price supply agreement for one location.
type EnergyContract struct {
	Location          string  `json:"location" yaml:"location"`
	Price             float64 `json:"price" yaml:"price"`
	Provider          string  `json:"provider" yaml:"provider"`
	TermYears         int     `json:"termYears" yaml:"term_years"`
	Capacity          float64 `json:"capacity" yaml:"capacity"`
	MonthlyCommitment float64 `json:"monthlyCommitment" yaml:"monthly_commitment"`
}

// Advisory is display-only guidance attached by the optimizer.
type Advisory struct {
	RecommendedStatus string  `json:"recommendedStatus"`
	ExpectedProfit    float64 `json:"expectedProfit"`
	Confidence        float64 `json:"confidence"`
}

// Device is one asset in the fleet. Revenue, cost and profit are per hour.
type Device struct {
	ID       string       `json:"id" yaml:"id"`
	Type     DeviceType   `json:"type" yaml:"type"`
	Location string       `json:"location" yaml:"location"`
	Status   DeviceStatus `json:"status" yaml:"status"`

	// miner
	HashRate float64 `json:"hashRate,omitempty" yaml:"hash_rate"`
	// ai_server
	GPUCount    int    `json:"gpuCount,omitempty" yaml:"gpu_count"`
	ComputeTier string `json:"computeTier,omitempty" yaml:"compute_tier"`
	// battery
	Capacity       float64 `json:"capacity,omitempty" yaml:"capacity"`
	EnergyCapacity float64 `json:"energyCapacity,omitempty" yaml:"energy_capacity"`

	PowerConsumption float64 `json:"powerConsumption" yaml:"power_consumption"`
	Efficiency       float64 `json:"efficiency" yaml:"efficiency"`
	PurchasePrice    float64 `json:"purchasePrice" yaml:"purchase_price"`

	Revenue     float64 `json:"revenue" yaml:"-"`
	Cost        float64 `json:"cost" yaml:"-"`
	Profit      float64 `json:"profit" yaml:"-"`
	Uptime      float64 `json:"uptime" yaml:"uptime"`
	Temperature float64 `json:"temperature" yaml:"temperature"`

	Label    string    `json:"label,omitempty" yaml:"-"`
	Advisory *Advisory `json:"advisory,omitempty" yaml:"-"`
}

// Clone returns a deep copy safe to hand to readers.
func (d *Device) Clone() Device {
	out := *d
	if d.Advisory != nil {
		a := *d.Advisory
		out.Advisory = &a
	}
	return out
}
