package models

// Maintenance schedule statuses, in lifecycle order.
const (
	ScheduleStatusPlanned    = "Dijadwalkan"
	ScheduleStatusInProgress = "Dalam Pengerjaan"
	ScheduleStatusDone       = "Selesai"
)

// MaintenanceSchedule is a planned maintenance slot for an asset.
type MaintenanceSchedule struct {
	ID                      uint   `gorm:"primaryKey;autoIncrement" json:"id,string"`
	AssetName               string `gorm:"size:128;index;not null" json:"asset_name"`
	Type                    string `gorm:"size:16" json:"type"`
	Description             string `gorm:"type:text" json:"description"`
	ScheduledDate           int64  `gorm:"index" json:"scheduled_date"`
	Duration                int    `gorm:"default:60" json:"duration"`
	Priority                string `gorm:"size:16;default:Sedang" json:"priority"`
	Status                  string `gorm:"size:32;default:Dijadwalkan;index" json:"status"`
	AssignedTo              string `gorm:"size:64;index" json:"assigned_to"`
	Recurrence              string `gorm:"size:64" json:"recurrence,omitempty"`
	CreatedBy               string `gorm:"size:64" json:"created_by"`
	CreatedAt               int64  `json:"created_at"`
	Notes                   string `gorm:"type:text" json:"notes"`
	CompletedBy             string `gorm:"size:64" json:"completed_by"`
	CompletedAt             *int64 `json:"completed_at"`
	PredictiveMaintenanceID string `gorm:"size:32" json:"predictive_maintenance_id,omitempty"`
}

// Predictive record states.
const (
	PredictiveStatusActive = "Aktif"
)

// PredictiveRecord is a sensor-based failure prediction for an asset.
type PredictiveRecord struct {
	ID                   uint    `gorm:"primaryKey;autoIncrement" json:"id,string"`
	AssetName            string  `gorm:"size:128;index;not null" json:"asset_name"`
	SensorType           string  `gorm:"size:64" json:"sensor_type"`
	CurrentValue         float64 `json:"current_value"`
	Threshold            float64 `json:"threshold"`
	RiskPercentage       float64 `json:"risk_percentage"`
	RiskLevel            string  `gorm:"size:16" json:"risk_level"`
	PredictedFailureDate int64   `json:"predicted_failure_date"`
	RecommendedAction    string  `gorm:"type:text" json:"recommended_action"`
	CreatedBy            string  `gorm:"size:64" json:"created_by"`
	CreatedAt            int64   `json:"created_at"`
	Status               string  `gorm:"size:16;default:Aktif" json:"status"`
}
