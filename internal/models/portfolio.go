package models

// Portfolio is fleet-wide financial state. Daily and monthly figures are
// projections of the current hourly rates.
type Portfolio struct {
	Cash                 float64 `json:"cash"`
	BitcoinHoldings      float64 `json:"bitcoinHoldings"`
	BitcoinValue         float64 `json:"bitcoinValue"`
	DailyRevenue         float64 `json:"dailyRevenue"`
	DailyCost            float64 `json:"dailyCost"`
	DailyProfit          float64 `json:"dailyProfit"`
	MonthlyProfit        float64 `json:"monthlyProfit"`
	DailyBTCAccumulation float64 `json:"dailyBTCAccumulation"`
	DeviceBookValue      float64 `json:"deviceBookValue"`
	ContractBookValue    float64 `json:"contractBookValue"`
	TotalValue           float64 `json:"totalValue"`
	TotalInvested        float64 `json:"totalInvested"`
	TotalReturn          float64 `json:"totalReturn"`

	TotalHashRate         float64 `json:"totalHashRate"`
	NetworkShare          float64 `json:"networkShare"`
	TotalPowerConsumption float64 `json:"totalPowerConsumption"`
	TotalGPUs             int     `json:"totalGPUs"`
	TotalBatteryCapacity  float64 `json:"totalBatteryCapacity"`
}
