package models

import "time"

type OperationStatus string

const (
	OpActive     OperationStatus = "active"
	OpMonitoring OperationStatus = "monitoring"
	OpCompleted  OperationStatus = "completed"
)

const (
	OpMiningOptimization = "mining_optimization"
	OpEnergySale         = "energy_sale"
	OpBatteryArbitrage   = "battery_arbitrage"
	OpEnergyOptimization = "energy_optimization"
	OpAIOptimization     = "ai_optimization"
	OpNetworkStatus      = "network_status"
)

type Operation struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Revenue     float64         `json:"revenue"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      OperationStatus `json:"status"`
}
