package store

import (
	"database/sql"
	"fmt"

	"github.com/dadam-app/dadam/internal/model"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.Schedule, error) {
	var s model.Schedule
	var stime, place, memo, stype sql.NullString
	var remind int

	err := scanner.Scan(
		&s.ID, &s.Title, &s.Date, &stime, &place, &memo, &stype,
		&remind, &s.FamilyCode, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Remind = remind != 0
	if stime.Valid {
		s.Time = &stime.String
	}
	if place.Valid {
		s.Place = &place.String
	}
	if memo.Valid {
		s.Memo = &memo.String
	}
	if stype.Valid {
		s.Type = &stype.String
	}
	return &s, nil
}

const scheduleCols = `id, title, schedule_date, time, place, memo, type, remind, family_code, created_by, created_at`

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *ScheduleStore) Create(title, date string, stime, place, memo, stype *string, remind bool, familyCode string, createdBy int64) (*model.Schedule, error) {
	result, err := s.db.Exec(
		`INSERT INTO schedules (title, schedule_date, time, place, memo, type, remind, family_code, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title, date, nullString(stime), nullString(place), nullString(memo), nullString(stype),
		boolToInt(remind), familyCode, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) GetByID(id int64) (*model.Schedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+` FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

// ListForScope returns schedules visible to the given viewer: family members
// see the whole family's schedules, users without a family see only their own.
func (s *ScheduleStore) ListForScope(familyCode string, viewerID int64) ([]model.Schedule, error) {
	if familyCode == "" {
		return s.list(`SELECT `+scheduleCols+` FROM schedules WHERE family_code = '' AND created_by = ? ORDER BY schedule_date ASC, id ASC`, viewerID)
	}
	return s.list(`SELECT `+scheduleCols+` FROM schedules WHERE family_code = ? ORDER BY schedule_date ASC, id ASC`, familyCode)
}

// ListUpcomingForScope returns visible schedules with dates in [from, to].
func (s *ScheduleStore) ListUpcomingForScope(familyCode string, viewerID int64, from, to string) ([]model.Schedule, error) {
	if familyCode == "" {
		return s.list(
			`SELECT `+scheduleCols+` FROM schedules WHERE family_code = '' AND created_by = ? AND schedule_date >= ? AND schedule_date <= ? ORDER BY schedule_date ASC, id ASC`,
			viewerID, from, to,
		)
	}
	return s.list(
		`SELECT `+scheduleCols+` FROM schedules WHERE family_code = ? AND schedule_date >= ? AND schedule_date <= ? ORDER BY schedule_date ASC, id ASC`,
		familyCode, from, to,
	)
}

// ListRemindersForDate returns every remind-enabled schedule on the given day,
// across all families. The push scheduler fans these out per family code.
func (s *ScheduleStore) ListRemindersForDate(date string) ([]model.Schedule, error) {
	return s.list(`SELECT `+scheduleCols+` FROM schedules WHERE remind = 1 AND schedule_date = ? ORDER BY id ASC`, date)
}

func (s *ScheduleStore) list(query string, args ...any) ([]model.Schedule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

func (s *ScheduleStore) Update(id int64, title, date string, stime, place, memo, stype *string, remind bool) (*model.Schedule, error) {
	_, err := s.db.Exec(
		`UPDATE schedules SET title = ?, schedule_date = ?, time = ?, place = ?, memo = ?, type = ?, remind = ? WHERE id = ?`,
		title, date, nullString(stime), nullString(place), nullString(memo), nullString(stype), boolToInt(remind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
