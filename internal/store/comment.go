package store

import (
	"database/sql"
	"fmt"

	"github.com/dadam-app/dadam/internal/model"
)

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

func scanComment(scanner interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	err := scanner.Scan(&c.ID, &c.AnswerID, &c.UserID, &c.Content, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const commentCols = `id, answer_id, user_id, content, created_at`

func (s *CommentStore) Create(answerID, userID int64, content string) (*model.Comment, error) {
	result, err := s.db.Exec(
		`INSERT INTO comments (answer_id, user_id, content) VALUES (?, ?, ?)`,
		answerID, userID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CommentStore) GetByID(id int64) (*model.Comment, error) {
	row := s.db.QueryRow(`SELECT `+commentCols+` FROM comments WHERE id = ?`, id)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *CommentStore) ListByAnswer(answerID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT `+commentCols+` FROM comments WHERE answer_id = ? ORDER BY created_at ASC, id ASC`,
		answerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (s *CommentStore) CountByAnswer(answerID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE answer_id = ?`, answerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments by answer: %w", err)
	}
	return count, nil
}

func (s *CommentStore) CountByUser(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments by user: %w", err)
	}
	return count, nil
}
