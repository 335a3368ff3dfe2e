package models

// Work order statuses, in lifecycle order.
const (
	WOStatusNew        = "Baru"
	WOStatusAssigned   = "Ditugaskan"
	WOStatusInProgress = "Dalam Pengerjaan"
	WOStatusCompleted  = "Selesai"
	WOStatusClosed     = "Ditutup"
)

// Work order types.
const (
	WOTypeCorrective = "Korektif"
	WOTypePreventive = "Preventif"
	WOTypePredictive = "Predictive"
)

// Priorities shared by work orders and schedules.
const (
	PriorityLow    = "Rendah"
	PriorityMedium = "Sedang"
	PriorityHigh   = "Tinggi"
)

// WorkOrder is a unit of maintenance work tracked through the lifecycle
// Baru → Ditugaskan → Dalam Pengerjaan → Selesai → Ditutup.
//
// Timestamps are epoch seconds and nil until the matching transition fires.
type WorkOrder struct {
	ID                 string   `gorm:"primaryKey;size:32" json:"id"`
	AssetID            string   `gorm:"size:32;index" json:"asset_id"`
	AssetName          string   `gorm:"size:128;not null;index" json:"asset_name"`
	AssetType          string   `gorm:"size:64" json:"asset_type"`
	Description        string   `gorm:"type:text" json:"description"`
	Components         []string `gorm:"serializer:json;type:text" json:"components"`
	Type               string   `gorm:"size:16;default:Korektif;index" json:"type"`
	Priority           string   `gorm:"size:16;default:Sedang" json:"priority"`
	Status             string   `gorm:"size:32;default:Baru;index" json:"status"`
	RequestedBy        string   `gorm:"size:64;index" json:"requested_by"`
	AssignedTo         string   `gorm:"size:64;index" json:"assigned_to"`
	Technician         string   `gorm:"size:128" json:"technician"`
	Supervisor         string   `gorm:"size:128" json:"supervisor"`
	RootCause          string   `gorm:"type:text" json:"root_cause"`
	ComponentFailed    string   `gorm:"size:128" json:"component_failed"`
	TimestampCreated   *int64   `gorm:"index" json:"timestamp_created"`
	TimestampStarted   *int64   `json:"timestamp_started"`
	TimestampCompleted *int64   `json:"timestamp_completed"`
	TimestampVerified  *int64   `json:"timestamp_verified"`
	CompletionNotes    string   `gorm:"type:text" json:"completion_notes"`
	CompletionPhotos   []string `gorm:"serializer:json;type:text" json:"completion_photos"`
	VerifiedBy         string   `gorm:"size:64" json:"verified_by"`
	EstimatedDuration  int      `gorm:"default:0" json:"estimated_duration"`
	PartsUsed          []Part   `gorm:"serializer:json;type:text" json:"parts_used"`
}

// Part is a spare part consumed while completing a work order.
type Part struct {
	Part     string `json:"part"`
	Quantity int    `json:"quantity"`
}

// WorkOrderEvent records one lifecycle transition of a work order.
type WorkOrderEvent struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id,string"`
	WorkOrder  string `gorm:"size:32;index;not null" json:"wo_id"`
	Action     string `gorm:"size:32;not null" json:"action"`
	FromStatus string `gorm:"size:32" json:"from_status"`
	ToStatus   string `gorm:"size:32" json:"to_status"`
	Actor      string `gorm:"size:64" json:"actor"`
	At         int64  `gorm:"index" json:"at"`
}
