package models

// Asset statuses recorded by the plant.
const (
	AssetStatusNormal    = "Operasi Normal"
	AssetStatusAttention = "Perlu Perhatian"
	AssetStatusProblem   = "Bermasalah"
)

// Asset is a piece of plant equipment, keyed by its unique name.
type Asset struct {
	ID                 uint     `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Name               string   `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Location           string   `gorm:"size:128" json:"location"`
	Type               string   `gorm:"size:64" json:"type"`
	Status             string   `gorm:"size:32;index" json:"status"`
	CriticalComponents []string `gorm:"serializer:json;type:text" json:"critical_components"`
	BreakdownCount     int      `gorm:"default:0" json:"breakdown_count"`
	LastMaintenance    *int64   `json:"last_maintenance"`
	Efficiency         float64  `gorm:"default:0" json:"efficiency"`
	EnergyEfficiency   float64  `gorm:"default:0" json:"energy_efficiency"`
	LastEnergyRecord   *int64   `json:"last_energy_record,omitempty"`
	OEE                *OEEData `gorm:"serializer:json;type:text" json:"oee_data,omitempty"`
	Manufacturer       string   `gorm:"size:128" json:"manufacturer"`
	Model              string   `gorm:"size:64" json:"model"`
	InstallationDate   *int64   `json:"installation_date,omitempty"`
	CreatedBy          string   `gorm:"size:64" json:"created_by,omitempty"`
	CreatedAt          int64    `gorm:"autoCreateTime" json:"created_at"`
}

// OEEData is the last OEE snapshot calculated for an asset.
type OEEData struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
	CalculatedAt int64   `json:"calculated_at"`
}

// HasComponent reports whether name is one of the asset's critical components.
func (a *Asset) HasComponent(name string) bool {
	for _, c := range a.CriticalComponents {
		if c == name {
			return true
		}
	}
	return false
}
