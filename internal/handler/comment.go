package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

// maxCommentsPerUser caps how many comments one user may leave in total,
// across all answers.
const maxCommentsPerUser = 10

type CommentHandler struct {
	comments *store.CommentStore
	parts    *store.ParticipationStore
	users    *store.UserStore
	logger   *slog.Logger
}

func NewCommentHandler(cs *store.CommentStore, ps *store.ParticipationStore, us *store.UserStore, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: cs, parts: ps, users: us, logger: logger}
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentView struct {
	model.Comment
	AuthorName string `json:"author_name"`
}

// Create handles POST /api/v1/answers/{id}/comments.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	answerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("comment content is required"))
		return
	}
	if len([]rune(content)) > model.MaxCommentLength {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage(fmt.Sprintf("comment must be at most %d characters", model.MaxCommentLength)))
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.checkAnswerVisible(answerID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	written, err := h.comments.CountByUser(userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if written >= maxCommentsPerUser {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage(fmt.Sprintf("at most %d comments per user", maxCommentsPerUser)))
		return
	}

	comment, err := h.comments.Create(answerID, userID, content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// List handles GET /api/v1/answers/{id}/comments.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	answerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID := auth.UserID(r.Context())
	if err := h.checkAnswerVisible(answerID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comments, err := h.comments.ListByAnswer(answerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	names := map[int64]string{}
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		name, ok := names[c.UserID]
		if !ok {
			if author, err := h.users.GetByID(c.UserID); err == nil && author != nil {
				name = author.Name
			}
			names[c.UserID] = name
		}
		views = append(views, commentView{Comment: c, AuthorName: name})
	}
	writeJSON(w, http.StatusOK, views)
}

// checkAnswerVisible confirms the answer exists and its author is in the
// requester's family scope. A user with no family only reaches their own
// answers.
func (h *CommentHandler) checkAnswerVisible(answerID, userID int64) error {
	answer, err := h.parts.FindByID(answerID)
	if err != nil {
		return err
	}
	if answer == nil {
		return apperr.ErrQuestionNotFound.WithMessage("answer not found")
	}
	if answer.UserID == userID {
		return nil
	}

	requester, err := h.users.GetByID(userID)
	if err != nil {
		return err
	}
	author, err := h.users.GetByID(answer.UserID)
	if err != nil {
		return err
	}
	if requester == nil || author == nil || !requester.HasFamily() || requester.FamilyCode != author.FamilyCode {
		return apperr.ErrForbidden
	}
	return nil
}
