package models

// Stock levels for inventory items.
const (
	StockSafe = "Aman"
	StockLow  = "Rendah"
)

// InventoryItem is a spare part kept in the plant warehouse.
type InventoryItem struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id,string"`
	ItemName     string  `gorm:"size:128;not null" json:"item_name"`
	PartNumber   string  `gorm:"size:64;uniqueIndex" json:"part_number"`
	MachineType  string  `gorm:"size:64" json:"machine_type"`
	CurrentStock int     `json:"current_stock"`
	MinStock     int     `json:"min_stock"`
	Unit         string  `gorm:"size:16" json:"unit"`
	Status       string  `gorm:"size:16;index" json:"status"`
	Value        float64 `json:"value"`
	Supplier     string  `gorm:"size:128" json:"supplier"`
	Location     string  `gorm:"size:64" json:"location"`
}

// StockStatus returns the stock level label for current against min.
func StockStatus(current, min int) string {
	if current < min {
		return StockLow
	}
	return StockSafe
}
