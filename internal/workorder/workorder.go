// Package workorder implements the work order lifecycle:
// Baru → Ditugaskan → Dalam Pengerjaan → Selesai → Ditutup.
package workorder

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/primefragrance/cmms/internal/models"
)

// Lifecycle actions, as recorded in the event log.
const (
	ActionCreate   = "create"
	ActionAssign   = "assign"
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionVerify   = "verify"
	ActionPhotos   = "upload_photos"
)

// DefaultFieldValue fills root cause and failed component when the
// technician leaves them empty.
const DefaultFieldValue = "Data belum diisi"

// Statuses lists every status in lifecycle order.
var Statuses = []string{
	models.WOStatusNew,
	models.WOStatusAssigned,
	models.WOStatusInProgress,
	models.WOStatusCompleted,
	models.WOStatusClosed,
}

// Types lists the accepted work order types.
var Types = []string{models.WOTypeCorrective, models.WOTypePreventive, models.WOTypePredictive}

// Priorities lists the accepted priorities.
var Priorities = []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}

// ValidTransitions maps each status to the statuses it may move to.
// Ditugaskan → Ditugaskan is a reassignment.
var ValidTransitions = map[string][]string{
	models.WOStatusNew:        {models.WOStatusAssigned},
	models.WOStatusAssigned:   {models.WOStatusAssigned, models.WOStatusInProgress, models.WOStatusCompleted},
	models.WOStatusInProgress: {models.WOStatusCompleted},
	models.WOStatusCompleted:  {models.WOStatusClosed},
}

// actionSources lists, per action, the statuses it may fire from.
var actionSources = map[string][]string{
	ActionAssign:   {models.WOStatusNew, models.WOStatusAssigned},
	ActionStart:    {models.WOStatusAssigned},
	ActionComplete: {models.WOStatusAssigned, models.WOStatusInProgress},
	ActionVerify:   {models.WOStatusCompleted},
}

// Rank returns the position of status in the lifecycle, or -1.
func Rank(status string) int {
	return slices.Index(Statuses, status)
}

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to string) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// GenerateID creates a unique work order ID in wo-xxxxxxxx format (8-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("workorder: generate ID: %w", err)
	}
	return "wo-" + hex.EncodeToString(b), nil
}

// CreateRequest holds the operator's breakdown report.
type CreateRequest struct {
	AssetName         string   `json:"asset_id" form:"asset_id"`
	Description       string   `json:"description" form:"description"`
	Components        []string `json:"components"`
	Type              string   `json:"wo_type" form:"wo_type"`
	Priority          string   `json:"priority" form:"priority"`
	EstimatedDuration int      `json:"estimated_duration" form:"estimated_duration"`
	Photos            []string `json:"-"`
}

// CompleteRequest holds the technician's completion report.
type CompleteRequest struct {
	Notes           string        `json:"notes"`
	RootCause       string        `json:"root_cause"`
	ComponentFailed string        `json:"component_failed"`
	PartsUsed       []models.Part `json:"parts_used"`
	Photos          []string      `json:"-"`
}
