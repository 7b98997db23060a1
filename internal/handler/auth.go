package handler

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

const (
	minPasswordLength = 8
	familyCodePrefix  = "DADAM-"
	familyCodeDigits  = 6
)

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tm *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, tokens: tm, logger: logger}
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	FamilyRole string `json:"family_role"`
	FamilyCode string `json:"family_code"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Signup handles POST /api/v1/auth/signup. A family code, when given, must
// belong to an existing family; signing up without one leaves the user solo
// until they join or start a family.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.FamilyCode = strings.ToUpper(strings.TrimSpace(req.FamilyCode))

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("a valid email is required"))
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage(fmt.Sprintf("password must be at least %d characters", minPasswordLength)))
		return
	}
	if req.Name == "" {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("name is required"))
		return
	}

	if req.FamilyCode != "" {
		exists, err := h.users.FamilyCodeExists(req.FamilyCode)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !exists {
			writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("unknown family code"))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Create(req.Email, string(hash), req.Name, req.FamilyRole, req.FamilyCode)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, h.logger, apperr.ErrUserExists)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.ErrUserNotFound)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, h.logger, apperr.ErrInvalidPassword)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name       *string `json:"name"`
	FamilyRole *string `json:"family_role"`
	FamilyCode *string `json:"family_code"`
	AvatarURL  *string `json:"avatar_url"`
}

// UpdateProfile handles PATCH /api/v1/users/me. Absent fields keep their
// value. family_code joins an existing family when set to its code, and
// leaves the current one when set to "".
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.ErrUserNotFound)
		return
	}

	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("name cannot be blank"))
			return
		}
	}
	role := user.FamilyRole
	if req.FamilyRole != nil {
		role = strings.TrimSpace(*req.FamilyRole)
	}
	avatar := user.AvatarURL
	if req.AvatarURL != nil {
		avatar = req.AvatarURL
	}

	familyCode := user.FamilyCode
	if req.FamilyCode != nil {
		familyCode = strings.ToUpper(strings.TrimSpace(*req.FamilyCode))
		if familyCode != "" && familyCode != user.FamilyCode {
			exists, err := h.users.FamilyCodeExists(familyCode)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			if !exists {
				writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("unknown family code"))
				return
			}
		}
	}

	updated, err := h.users.UpdateProfile(user.ID, name, role, familyCode, avatar)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// FamilyCode handles POST /api/v1/users/me/family-code: it returns the
// caller's family code, minting a fresh one first if they have no family
// yet. Family members share this code to let others join.
func (h *AuthHandler) FamilyCode(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.ErrUserNotFound)
		return
	}

	if !user.HasFamily() {
		code, err := h.mintFamilyCode()
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		user, err = h.users.UpdateProfile(user.ID, user.Name, user.FamilyRole, code, user.AvatarURL)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Info("family created", "user_id", user.ID, "family_code", code)
	}

	writeJSON(w, http.StatusOK, map[string]string{"family_code": user.FamilyCode})
}

const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func (h *AuthHandler) mintFamilyCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, familyCodeDigits)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate family code: %w", err)
		}
		for i := range buf {
			buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := familyCodePrefix + string(buf)

		exists, err := h.users.FamilyCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not mint a unique family code")
}
