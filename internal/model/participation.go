package model

import "time"

// Participation is one user's recorded response to one daily item: a free-text
// answer for the question kind, "A"/"B" for balance, a choice index for quiz.
// The (item_id, user_id) pair is unique; for revote kinds the row's choice is
// updated in place rather than inserted again.
type Participation struct {
	ID        int64      `json:"id"`
	ItemID    int64      `json:"item_id"`
	UserID    int64      `json:"user_id"`
	Choice    string     `json:"choice"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
