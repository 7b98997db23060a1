package store

import (
	"database/sql"
	"fmt"

	"github.com/dadam-app/dadam/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var familyCode sql.NullString
	var avatarURL sql.NullString

	err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.FamilyRole, &familyCode, &avatarURL, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if familyCode.Valid {
		u.FamilyCode = familyCode.String
	}
	if avatarURL.Valid {
		u.AvatarURL = &avatarURL.String
	}
	return &u, nil
}

const userCols = `id, email, password_hash, name, family_role, family_code, avatar_url, created_at`

// Create inserts a user. ErrDuplicate means the email is already registered.
func (s *UserStore) Create(email, passwordHash, name, familyRole, familyCode string) (*model.User, error) {
	var code sql.NullString
	if familyCode != "" {
		code = sql.NullString{String: familyCode, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, name, family_role, family_code) VALUES (?, ?, ?, ?, ?)`,
		email, passwordHash, name, familyRole, code,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// FindByFamilyCode returns any one user carrying the code, or nil. Used to
// decide whether a profile update joins an existing family or claims a new code.
func (s *UserStore) FindByFamilyCode(code string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE family_code = ? LIMIT 1`, code)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by family code: %w", err)
	}
	return u, nil
}

func (s *UserStore) FamilyCodeExists(code string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE family_code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check family code: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile writes the user's profile fields. familyCode semantics follow
// the PATCH contract resolved by the handler: nil pointer fields are already
// merged with the current values before this call.
func (s *UserStore) UpdateProfile(id int64, name, familyRole, familyCode string, avatarURL *string) (*model.User, error) {
	var code sql.NullString
	if familyCode != "" {
		code = sql.NullString{String: familyCode, Valid: true}
	}
	var avatar sql.NullString
	if avatarURL != nil {
		avatar = sql.NullString{String: *avatarURL, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE users SET name = ?, family_role = ?, family_code = ?, avatar_url = ? WHERE id = ?`,
		name, familyRole, code, avatar, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return s.GetByID(id)
}

// ListByFamilyCode returns every member of one family. Blank codes are not a
// family and never match here.
func (s *UserStore) ListByFamilyCode(code string) ([]model.User, error) {
	if code == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT `+userCols+` FROM users WHERE family_code = ? ORDER BY id ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("list users by family code: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
