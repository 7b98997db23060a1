package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dadam-app/dadam/internal/model"
)

type ParticipationStore struct {
	db *sql.DB
}

func NewParticipationStore(db *sql.DB) *ParticipationStore {
	return &ParticipationStore{db: db}
}

func scanParticipation(scanner interface{ Scan(...any) error }) (*model.Participation, error) {
	var p model.Participation
	var updatedAt sql.NullTime

	err := scanner.Scan(&p.ID, &p.ItemID, &p.UserID, &p.Choice, &p.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}

const participationCols = `id, item_id, user_id, choice, created_at, updated_at`

func (s *ParticipationStore) FindByID(id int64) (*model.Participation, error) {
	row := s.db.QueryRow(`SELECT `+participationCols+` FROM participations WHERE id = ?`, id)
	p, err := scanParticipation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find participation: %w", err)
	}
	return p, nil
}

// FindByItemAndUser returns the user's participation for the item, or nil.
func (s *ParticipationStore) FindByItemAndUser(itemID, userID int64) (*model.Participation, error) {
	row := s.db.QueryRow(
		`SELECT `+participationCols+` FROM participations WHERE item_id = ? AND user_id = ?`,
		itemID, userID,
	)
	p, err := scanParticipation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find participation by item and user: %w", err)
	}
	return p, nil
}

// ListByItem returns every participation for the item in creation order.
// Family-scope filtering happens in the service, not here.
func (s *ParticipationStore) ListByItem(itemID int64) ([]model.Participation, error) {
	rows, err := s.db.Query(
		`SELECT `+participationCols+` FROM participations WHERE item_id = ? ORDER BY created_at ASC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	var parts []model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

// Create inserts a participation. Two concurrent first votes from the same
// user can both pass the existence pre-check; the UNIQUE(item_id, user_id)
// constraint decides the race and the loser gets ErrDuplicate.
func (s *ParticipationStore) Create(itemID, userID int64, choice string) (*model.Participation, error) {
	result, err := s.db.Exec(
		`INSERT INTO participations (item_id, user_id, choice) VALUES (?, ?, ?)`,
		itemID, userID, choice,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert participation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.FindByID(id)
}

// UpdateChoice replaces the row's choice. Only revote kinds call this.
func (s *ParticipationStore) UpdateChoice(id int64, choice string) (*model.Participation, error) {
	_, err := s.db.Exec(
		`UPDATE participations SET choice = ?, updated_at = ? WHERE id = ?`,
		choice, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update participation choice: %w", err)
	}
	return s.FindByID(id)
}

// UpdateContent rewrites a free-text answer (question kind only).
func (s *ParticipationStore) UpdateContent(id int64, content string) (*model.Participation, error) {
	_, err := s.db.Exec(
		`UPDATE participations SET choice = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update participation content: %w", err)
	}
	return s.FindByID(id)
}

func (s *ParticipationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM participations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete participation: %w", err)
	}
	return nil
}

func (s *ParticipationStore) CountByItem(itemID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM participations WHERE item_id = ?`, itemID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participations by item: %w", err)
	}
	return count, nil
}

func (s *ParticipationStore) CountByUser(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM participations WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participations by user: %w", err)
	}
	return count, nil
}
