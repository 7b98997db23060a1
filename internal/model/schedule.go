package model

import "time"

type Schedule struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"` // DateLayout
	Time       *string   `json:"time"`
	Place      *string   `json:"place"`
	Memo       *string   `json:"memo"`
	Type       *string   `json:"type"` // e.g. "trip", "dinner"
	Remind     bool      `json:"remind"`
	FamilyCode string    `json:"family_code"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}
