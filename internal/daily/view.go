package daily

import (
	"time"

	"github.com/dadam-app/dadam/internal/model"
)

// AnswerView is one family member's answer to the daily question, enriched
// with author identity and the comment count the UI shows on the card.
type AnswerView struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	AuthorName   string     `json:"author_name"`
	AuthorRole   string     `json:"author_role,omitempty"`
	Content      string     `json:"content"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// VoterView is one family member's vote on a balance game or quiz.
type VoterView struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Choice string `json:"choice"`
}

// View is a daily item together with the requester's family-scoped
// participation state. Which sections are populated depends on the kind:
// the question kind fills Answers, the vote kinds fill Counts and Voters.
type View struct {
	Item *model.DailyItem `json:"item"`

	Answers []AnswerView `json:"answers,omitempty"`

	Counts   map[string]int `json:"counts,omitempty"`
	Voters   []VoterView    `json:"voters,omitempty"`
	MyChoice *string        `json:"my_choice,omitempty"`

	Participated bool `json:"participated"`
}
