package model

import "time"

// Статусы тура.
const (
	TourStatusDraft      = "draft"
	TourStatusInProgress = "in_progress"
	TourStatusCompleted  = "completed"
	TourStatusCancelled  = "cancelled"
)

// Tour представляет многодневный тур, принадлежащий одной компании.
type Tour struct {
	ID       int    `db:"id" json:"id"`
	TenantID int    `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Status   string `db:"status" json:"status"`
}

// Day представляет день тура с плотной нумерацией от 1.
type Day struct {
	ID       int       `db:"id" json:"id"`
	TourID   int       `db:"tour_id" json:"tour_id"`
	DayIndex int       `db:"day_index" json:"day_index"`
	Date     time.Time `db:"day_date" json:"date"`
}
