package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dadam-app/dadam/internal/model"
)

type DailyItemStore struct {
	db *sql.DB
}

func NewDailyItemStore(db *sql.DB) *DailyItemStore {
	return &DailyItemStore{db: db}
}

func scanDailyItem(scanner interface{ Scan(...any) error }) (*model.DailyItem, error) {
	var item model.DailyItem
	var kind, payload string

	err := scanner.Scan(&item.ID, &kind, &item.Date, &payload, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.Kind = model.ItemKind(kind)
	if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &item, nil
}

const dailyItemCols = `id, kind, item_date, payload, created_at`

// FindByDay returns the item for (kind, day), or nil when none exists yet.
func (s *DailyItemStore) FindByDay(kind model.ItemKind, day string) (*model.DailyItem, error) {
	row := s.db.QueryRow(
		`SELECT `+dailyItemCols+` FROM daily_items WHERE kind = ? AND item_date = ?`,
		string(kind), day,
	)
	item, err := scanDailyItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find daily item by day: %w", err)
	}
	return item, nil
}

func (s *DailyItemStore) FindByID(id int64) (*model.DailyItem, error) {
	row := s.db.QueryRow(`SELECT `+dailyItemCols+` FROM daily_items WHERE id = ?`, id)
	item, err := scanDailyItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find daily item: %w", err)
	}
	return item, nil
}

// Create inserts the item for (kind, day). When a concurrent request already
// inserted one, the UNIQUE(kind, item_date) constraint fires and Create
// returns ErrDuplicate; the caller re-reads instead of failing.
func (s *DailyItemStore) Create(kind model.ItemKind, day string, payload model.Payload) (*model.DailyItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO daily_items (kind, item_date, payload) VALUES (?, ?, ?)`,
		string(kind), day, string(data),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert daily item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.FindByID(id)
}
