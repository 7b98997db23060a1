package model

import "time"

// ItemKind identifies one of the daily content types.
type ItemKind string

const (
	KindQuestion ItemKind = "question"
	KindBalance  ItemKind = "balance"
	KindQuiz     ItemKind = "quiz"
)

// DateLayout is the canonical wire/storage format for an item's calendar day.
const DateLayout = "2006-01-02"

// Payload holds the generated content for a daily item. One struct covers all
// three kinds; fallback content uses the exact same fields as generated
// content, so nothing downstream can tell them apart.
type Payload struct {
	// question kind
	Content string `json:"content,omitempty"`

	// balance kind
	OptionA string `json:"option_a,omitempty"`
	OptionB string `json:"option_b,omitempty"`

	// quiz kind
	Answer      string   `json:"answer,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Explanation string   `json:"explanation,omitempty"`

	// shared
	Question string `json:"question,omitempty"` // balance + quiz
	Category string `json:"category,omitempty"` // question + balance
}

// DailyItem is the single content unit for one (kind, calendar day). It is
// created lazily on first access, immutable afterwards, and never deleted.
type DailyItem struct {
	ID        int64     `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Date      string    `json:"date"` // DateLayout in the service's canonical zone
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
