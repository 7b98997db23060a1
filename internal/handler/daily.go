package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/daily"
	"github.com/dadam-app/dadam/internal/model"
)

// DailyHandler serves the question, balance game, and quiz routes. The three
// kinds share one service; the handler only maps URLs and request shapes.
type DailyHandler struct {
	svc    *daily.Service
	logger *slog.Logger
}

func NewDailyHandler(svc *daily.Service, logger *slog.Logger) *DailyHandler {
	return &DailyHandler{svc: svc, logger: logger}
}

// QuestionToday handles GET /api/v1/questions/today.
func (h *DailyHandler) QuestionToday(w http.ResponseWriter, r *http.Request) {
	h.today(w, r, model.KindQuestion)
}

// QuestionByDate handles GET /api/v1/questions/by-date?date=YYYY-MM-DD.
func (h *DailyHandler) QuestionByDate(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ItemByDate(model.KindQuestion, r.URL.Query().Get("date"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Content string `json:"content"`
}

// AnswerCreate handles POST /api/v1/questions/{id}/answers.
func (h *DailyHandler) AnswerCreate(w http.ResponseWriter, r *http.Request) {
	questionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.svc.ParticipateOn(model.KindQuestion, questionID, auth.UserID(r.Context()), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// AnswerList handles GET /api/v1/questions/{id}/answers.
func (h *DailyHandler) AnswerList(w http.ResponseWriter, r *http.Request) {
	questionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	view, err := h.svc.ViewOf(model.KindQuestion, questionID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Answers)
}

// AnswerUpdate handles PATCH /api/v1/answers/{id}.
func (h *DailyHandler) AnswerUpdate(w http.ResponseWriter, r *http.Request) {
	answerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.svc.UpdateAnswer(answerID, auth.UserID(r.Context()), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// AnswerDelete handles DELETE /api/v1/answers/{id}.
func (h *DailyHandler) AnswerDelete(w http.ResponseWriter, r *http.Request) {
	answerID, err := parseIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.DeleteAnswer(answerID, auth.UserID(r.Context())); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BalanceToday handles GET /api/v1/balance/today.
func (h *DailyHandler) BalanceToday(w http.ResponseWriter, r *http.Request) {
	h.today(w, r, model.KindBalance)
}

type voteRequest struct {
	Choice string `json:"choice"`
}

// BalanceVote handles POST /api/v1/balance/vote with {"choice": "A"|"B"}.
// Voting again replaces the earlier choice.
func (h *DailyHandler) BalanceVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.vote(w, r, model.KindBalance, req.Choice)
}

// QuizToday handles GET /api/v1/quiz/today.
func (h *DailyHandler) QuizToday(w http.ResponseWriter, r *http.Request) {
	h.today(w, r, model.KindQuiz)
}

type quizVoteRequest struct {
	ChoiceIndex *int `json:"choice_index"`
}

// QuizVote handles POST /api/v1/quiz/vote with {"choice_index": 0..}.
// A quiz vote is final.
func (h *DailyHandler) QuizVote(w http.ResponseWriter, r *http.Request) {
	var req quizVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.ChoiceIndex == nil {
		writeError(w, h.logger, apperr.ErrInvalidRequest.WithMessage("choice_index is required"))
		return
	}
	h.vote(w, r, model.KindQuiz, strconv.Itoa(*req.ChoiceIndex))
}

func (h *DailyHandler) today(w http.ResponseWriter, r *http.Request, kind model.ItemKind) {
	view, err := h.svc.TodayItem(r.Context(), kind, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DailyHandler) vote(w http.ResponseWriter, r *http.Request, kind model.ItemKind, choice string) {
	view, err := h.svc.Participate(r.Context(), kind, auth.UserID(r.Context()), choice)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
