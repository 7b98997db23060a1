package model

import "time"

// MaxCommentLength caps a single comment's content.
const MaxCommentLength = 50

// Comment is a short reaction to a question answer (a participation row of
// the question kind).
type Comment struct {
	ID        int64     `json:"id"`
	AnswerID  int64     `json:"answer_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
