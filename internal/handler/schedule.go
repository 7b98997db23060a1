package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

// upcomingWindowDays is how far ahead the upcoming-schedules view looks.
const upcomingWindowDays = 30

type ScheduleHandler struct {
	schedules *store.ScheduleStore
	loc       *time.Location
	logger    *slog.Logger

	// notify, when set, fans schedule mutations out to the author's scope.
	notify func(familyCode string, userID int64, event string, id int64)
}

func NewScheduleHandler(ss *store.ScheduleStore, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: ss, loc: loc, logger: logger}
}

// SetNotifier installs the realtime fan-out hook. Safe to leave unset.
func (h *ScheduleHandler) SetNotifier(fn func(familyCode string, userID int64, event string, id int64)) {
	h.notify = fn
}

func (h *ScheduleHandler) notifyMutation(familyCode string, userID int64, action string, id int64) {
	if h.notify != nil {
		h.notify(familyCode, userID, "schedule."+action, id)
	}
}

type scheduleRequest struct {
	Title  string  `json:"title"`
	Date   string  `json:"date"`
	Time   *string `json:"time"`
	Place  *string `json:"place"`
	Memo   *string `json:"memo"`
	Type   *string `json:"type"`
	Remind bool    `json:"remind"`
}

func (req *scheduleRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return apperr.ErrInvalidRequest.WithMessage("title is required")
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		return apperr.ErrInvalidRequest.WithMessage("date must be formatted YYYY-MM-DD")
	}
	return nil
}

// Create handles POST /api/v1/schedules. The schedule is shared with the
// caller's family; a user without a family keeps it to themselves.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	schedule, err := h.schedules.Create(req.Title, req.Date, req.Time, req.Place, req.Memo, req.Type, req.Remind, ac.FamilyCode, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notifyMutation(ac.FamilyCode, ac.UserID, "created", schedule.ID)
	writeJSON(w, http.StatusCreated, schedule)
}

// List handles GET /api/v1/schedules.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	schedules, err := h.schedules.ListForScope(ac.FamilyCode, ac.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

// Upcoming handles GET /api/v1/schedules/upcoming: schedules from today
// through the next 30 days.
func (h *ScheduleHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	now := time.Now().In(h.loc)
	from := now.Format(model.DateLayout)
	to := now.AddDate(0, 0, upcomingWindowDays).Format(model.DateLayout)

	schedules, err := h.schedules.ListUpcomingForScope(ac.FamilyCode, ac.UserID, from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

// Update handles PUT /api/v1/schedules/{id}.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.visibleSchedule(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.schedules.Update(schedule.ID, req.Title, req.Date, req.Time, req.Place, req.Memo, req.Type, req.Remind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	h.notifyMutation(ac.FamilyCode, ac.UserID, "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/schedules/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.visibleSchedule(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.schedules.Delete(schedule.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	h.notifyMutation(ac.FamilyCode, ac.UserID, "deleted", schedule.ID)
	w.WriteHeader(http.StatusNoContent)
}

// visibleSchedule loads the path's schedule and checks the caller may touch
// it: any family member may edit a family schedule, solo users only their own.
func (h *ScheduleHandler) visibleSchedule(r *http.Request) (*model.Schedule, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return nil, err
	}
	schedule, err := h.schedules.GetByID(id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, apperr.ErrScheduleNotFound
	}

	ac, _ := auth.FromContext(r.Context())
	if schedule.FamilyCode != "" {
		if schedule.FamilyCode != ac.FamilyCode {
			return nil, apperr.ErrForbidden
		}
	} else if schedule.CreatedBy != ac.UserID {
		return nil, apperr.ErrForbidden
	}
	return schedule, nil
}
