package models

// EnergyRecord is a metered energy reading for an asset over a period.
type EnergyRecord struct {
	ID                uint    `gorm:"primaryKey;autoIncrement" json:"id,string"`
	AssetName         string  `gorm:"size:128;index;not null" json:"asset_name"`
	EnergyConsumption float64 `json:"energy_consumption"`
	DurationHours     float64 `json:"duration_hours"`
	PowerConsumption  float64 `json:"power_consumption"`
	Timestamp         int64   `gorm:"index" json:"timestamp"`
	RecordedBy        string  `gorm:"size:64" json:"recorded_by"`
	RecordedAt        int64   `json:"recorded_at"`
}

// MaintenanceCost is a single cost line booked against a work order.
type MaintenanceCost struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id,string"`
	WorkOrderID string  `gorm:"column:wo_id;size:64;index" json:"wo_id"`
	AssetName   string  `gorm:"size:128;index" json:"asset_name"`
	CostType    string  `gorm:"size:32;index" json:"cost_type"`
	Amount      float64 `json:"amount"`
	Currency    string  `gorm:"size:8;default:IDR" json:"currency"`
	Description string  `gorm:"type:text" json:"description"`
	Timestamp   int64   `gorm:"index" json:"timestamp"`
	RecordedBy  string  `gorm:"size:64" json:"recorded_by"`
}

// MaintenanceBudget is the budget for one department in one quarter.
type MaintenanceBudget struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Year       int     `gorm:"uniqueIndex:idx_budget_period" json:"year"`
	Quarter    int     `gorm:"uniqueIndex:idx_budget_period" json:"quarter"`
	Department string  `gorm:"size:64;uniqueIndex:idx_budget_period" json:"department"`
	Amount     float64 `json:"amount"`
	Currency   string  `gorm:"size:8;default:IDR" json:"currency"`
	SetBy      string  `gorm:"size:64" json:"set_by"`
	SetAt      int64   `json:"set_at"`
}
