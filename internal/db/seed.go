package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/primefragrance/cmms/internal/auth"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MachineComponents lists the critical components per machine type.
var MachineComponents = map[string][]string{
	"mixing":   {"Motor Agitator", "Agitator Blade / Impeller", "Gearbox / Reducer", "Gasket & Seal"},
	"filling":  {"Nozzle Filling", "Filling Pump", "Flow Sensor", "Solenoid Valve"},
	"conveyor": {"Motor Conveyor", "Conveyor Belt", "Roller", "Bearing"},
	"labeling": {"Label Dispenser", "Label Sensor", "Applicator Roller", "Stepper Motor"},
}

// machineTypes fixes the seeding order of MachineComponents.
var machineTypes = []string{"mixing", "filling", "conveyor", "labeling"}

// SeedOptions controls the demo data written by Seed.
type SeedOptions struct {
	// Password is set on every seeded account.
	Password string
	Now      time.Time
}

// Seed inserts the demo accounts, assets, spare parts and budgets. Existing
// rows are left untouched, so Seed is safe to run repeatedly.
func Seed(db *gorm.DB, opts SeedOptions) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if err := SeedUsers(db, opts.Password, opts.Now); err != nil {
		return err
	}
	if err := SeedAssets(db, opts.Now); err != nil {
		return err
	}
	if err := SeedInventory(db); err != nil {
		return err
	}
	return SeedBudget(db, opts.Now)
}

// SeedUsers inserts one account per role.
func SeedUsers(db *gorm.DB, password string, now time.Time) error {
	if password == "" {
		return fmt.Errorf("db: seed users: password is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("db: seed users: %w", err)
	}
	users := []models.User{
		{Username: "op_lina", Role: identity.RoleOperator, Name: "Lina Operator", Department: "Produksi"},
		{Username: "tech_budi", Role: identity.RoleTechnician, Name: "Budi Teknisi", Department: "Maintenance"},
		{Username: "sup_adi", Role: identity.RoleSupervisor, Name: "Adi Supervisor", Department: "Maintenance"},
		{Username: "mgr_maya", Role: identity.RoleManager, Name: "Maya Manager", Department: "Management"},
	}
	for i := range users {
		users[i].PasswordHash = hash
		users[i].CreatedBy = "system"
		users[i].CreatedAt = now.Unix()
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).Create(&users[i])
		if result.Error != nil {
			return fmt.Errorf("db: seed user %q: %w", users[i].Username, result.Error)
		}
	}
	return nil
}

// SeedAssets inserts the plant's production line.
func SeedAssets(db *gorm.DB, now time.Time) error {
	daysAgo := func(d int) *int64 {
		ts := now.AddDate(0, 0, -d).Unix()
		return &ts
	}
	oee := func(a, p, q, o float64, d int) *models.OEEData {
		return &models.OEEData{Availability: a, Performance: p, Quality: q, OEE: o, CalculatedAt: *daysAgo(d)}
	}
	assets := []models.Asset{
		{Name: "Mixing Tank A", Location: "Area Pencampuran", Type: "mixing", Status: models.AssetStatusNormal,
			BreakdownCount: 2, LastMaintenance: daysAgo(15), Efficiency: 85.5, EnergyEfficiency: 82.0,
			OEE: oee(90.5, 88.2, 95.1, 76.8, 1), InstallationDate: daysAgo(365), Manufacturer: "MixTech Industries", Model: "MT-5000"},
		{Name: "Filling Machine 01", Location: "Lini Pengisian", Type: "filling", Status: models.AssetStatusNormal,
			BreakdownCount: 1, LastMaintenance: daysAgo(30), Efficiency: 92.3, EnergyEfficiency: 88.5,
			OEE: oee(94.2, 91.8, 97.5, 84.3, 2), InstallationDate: daysAgo(180), Manufacturer: "FillPro Systems", Model: "FP-2000"},
		{Name: "Conveyor Line A", Location: "Lini Pengisian", Type: "conveyor", Status: models.AssetStatusAttention,
			BreakdownCount: 4, LastMaintenance: daysAgo(60), Efficiency: 78.9, EnergyEfficiency: 75.2,
			OEE: oee(85.6, 82.4, 92.8, 65.4, 3), InstallationDate: daysAgo(270), Manufacturer: "ConveyMax", Model: "CM-1500"},
		{Name: "Labeling Machine B", Location: "Lini Pengemasan", Type: "labeling", Status: models.AssetStatusNormal,
			LastMaintenance: daysAgo(10), Efficiency: 95.7, EnergyEfficiency: 91.3,
			OEE: oee(96.8, 94.2, 98.5, 89.8, 1), InstallationDate: daysAgo(120), Manufacturer: "LabelMaster", Model: "LM-3000"},
		{Name: "Mixing Tank B", Location: "Area Pencampuran", Type: "mixing", Status: models.AssetStatusProblem,
			BreakdownCount: 6, LastMaintenance: daysAgo(90), Efficiency: 65.2, EnergyEfficiency: 62.8,
			OEE: oee(72.4, 68.9, 85.6, 42.8, 5), InstallationDate: daysAgo(400), Manufacturer: "MixTech Industries", Model: "MT-5000"},
		{Name: "Filling Machine 02", Location: "Lini Pengisian", Type: "filling", Status: models.AssetStatusNormal,
			BreakdownCount: 1, LastMaintenance: daysAgo(25), Efficiency: 88.4, EnergyEfficiency: 85.7,
			OEE: oee(91.2, 87.6, 94.3, 75.2, 2), InstallationDate: daysAgo(200), Manufacturer: "FillPro Systems", Model: "FP-2000"},
	}
	for i := range assets {
		assets[i].CriticalComponents = MachineComponents[assets[i].Type]
		assets[i].CreatedBy = "system"
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&assets[i])
		if result.Error != nil {
			return fmt.Errorf("db: seed asset %q: %w", assets[i].Name, result.Error)
		}
	}
	return nil
}

// SeedInventory inserts one spare part per critical component plus general
// consumables. Alternating stock levels leave some items below minimum.
func SeedInventory(db *gorm.DB) error {
	var items []models.InventoryItem
	for _, mt := range machineTypes {
		for i, component := range MachineComponents[mt] {
			stock := 50
			if i%2 == 1 {
				stock = 8
			}
			items = append(items, models.InventoryItem{
				ItemName:     component,
				PartNumber:   fmt.Sprintf("PART-%s-%02d", strings.ToUpper(mt), i+1),
				MachineType:  mt,
				CurrentStock: stock,
				MinStock:     10,
				Unit:         "pcs",
				Status:       models.StockStatus(stock, 10),
				Value:        150000,
				Supplier:     "PT. Sparepart Indonesia",
				Location:     "Gudang A",
			})
		}
	}
	items = append(items,
		models.InventoryItem{ItemName: "Oil Hydraulic", PartNumber: "FLUID-HYD-01", MachineType: "general",
			CurrentStock: 25, MinStock: 5, Unit: "liter", Status: models.StockSafe, Value: 85000,
			Supplier: "PT. Lubricant Indo", Location: "Gudang B"},
		models.InventoryItem{ItemName: "V-Belt", PartNumber: "BELT-V-001", MachineType: "general",
			CurrentStock: 6, MinStock: 10, Unit: "pcs", Status: models.StockLow, Value: 120000,
			Supplier: "PT. PowerTrans", Location: "Gudang A"},
	)
	for i := range items {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "part_number"}},
			DoNothing: true,
		}).Create(&items[i])
		if result.Error != nil {
			return fmt.Errorf("db: seed inventory %q: %w", items[i].PartNumber, result.Error)
		}
	}
	return nil
}

// SeedBudget inserts a quarterly maintenance budget for the current year.
func SeedBudget(db *gorm.DB, now time.Time) error {
	for q := 1; q <= 4; q++ {
		budget := models.MaintenanceBudget{
			Year:       now.Year(),
			Quarter:    q,
			Department: "Maintenance",
			Amount:     50000000,
			Currency:   "IDR",
			SetBy:      "system",
			SetAt:      now.Unix(),
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}, {Name: "quarter"}, {Name: "department"}},
			DoNothing: true,
		}).Create(&budget)
		if result.Error != nil {
			return fmt.Errorf("db: seed budget %d-Q%d: %w", now.Year(), q, result.Error)
		}
	}
	return nil
}
