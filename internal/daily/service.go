package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

// Service orchestrates the daily content lifecycle for all three kinds:
// ensuring exactly one item exists per kind per calendar day, recording
// participations under the per-kind policy, and assembling family-scoped
// views. Concurrency is settled by the storage uniqueness constraints, not
// by locks: whoever loses an insert race re-reads the winner's row.
type Service struct {
	items    *store.DailyItemStore
	parts    *store.ParticipationStore
	users    *store.UserStore
	comments *store.CommentStore
	gen      *Generator
	loc      *time.Location
	logger   *slog.Logger

	// notify, when set, is called after a new participation is recorded so
	// the realtime feed can fan it out to the author's scope. userID lets a
	// solo author's events reach their private room.
	notify func(familyCode string, userID int64, event string, itemID int64)
}

func NewService(items *store.DailyItemStore, parts *store.ParticipationStore, users *store.UserStore, comments *store.CommentStore, gen *Generator, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{
		items:    items,
		parts:    parts,
		users:    users,
		comments: comments,
		gen:      gen,
		loc:      loc,
		logger:   logger.With("component", "daily"),
	}
}

// SetNotifier installs the realtime fan-out hook. Safe to leave unset.
func (s *Service) SetNotifier(fn func(familyCode string, userID int64, event string, itemID int64)) {
	s.notify = fn
}

// Today returns the current date in the service's canonical timezone. All
// "today" decisions in the system go through this one clock.
func (s *Service) Today() string {
	return time.Now().In(s.loc).Format(model.DateLayout)
}

// TodayItem returns today's item of the given kind, creating it first if no
// request has landed on this day yet, shaped for the requesting user.
func (s *Service) TodayItem(ctx context.Context, kind model.ItemKind, userID int64) (*View, error) {
	item, err := s.getOrCreate(ctx, kind, s.Today())
	if err != nil {
		return nil, err
	}
	return s.buildView(kind, item, userID)
}

// ItemByDate returns the item of the given kind for a past (or present) date.
// Unlike TodayItem it never creates: absent dates are a not-found error.
func (s *Service) ItemByDate(kind model.ItemKind, date string, userID int64) (*View, error) {
	spec := specFor(kind)
	if spec == nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("unknown content kind")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("date must be formatted YYYY-MM-DD")
	}
	item, err := s.items.FindByDay(kind, date)
	if err != nil {
		return nil, fmt.Errorf("find item by date: %w", err)
	}
	if item == nil {
		return nil, spec.notFoundErr
	}
	return s.buildView(kind, item, userID)
}

// Participate records the user's choice on today's item of the given kind.
// Write-once kinds reject a second attempt; revote kinds overwrite the
// earlier choice in place. The returned view reflects the new state.
func (s *Service) Participate(ctx context.Context, kind model.ItemKind, userID int64, choice string) (*View, error) {
	spec := specFor(kind)
	if spec == nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("unknown content kind")
	}

	item, err := s.getOrCreate(ctx, kind, s.Today())
	if err != nil {
		return nil, err
	}
	return s.participateOn(spec, item, userID, choice)
}

// ParticipateOn records a choice against a specific existing item, looked up
// by id. Used by the answer-by-question-id routes; the item is never created
// here.
func (s *Service) ParticipateOn(kind model.ItemKind, itemID, userID int64, choice string) (*View, error) {
	spec := specFor(kind)
	if spec == nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("unknown content kind")
	}
	item, err := s.itemOfKind(spec, itemID)
	if err != nil {
		return nil, err
	}
	return s.participateOn(spec, item, userID, choice)
}

// ViewOf shapes an existing item, looked up by id, for the requester.
func (s *Service) ViewOf(kind model.ItemKind, itemID, userID int64) (*View, error) {
	spec := specFor(kind)
	if spec == nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("unknown content kind")
	}
	item, err := s.itemOfKind(spec, itemID)
	if err != nil {
		return nil, err
	}
	return s.buildView(kind, item, userID)
}

func (s *Service) itemOfKind(spec *kindSpec, itemID int64) (*model.DailyItem, error) {
	item, err := s.items.FindByID(itemID)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item == nil || item.Kind != spec.kind {
		return nil, spec.notFoundErr
	}
	return item, nil
}

func (s *Service) participateOn(spec *kindSpec, item *model.DailyItem, userID int64, choice string) (*View, error) {
	normalized, verr := spec.validateChoice(item, choice)
	if verr != nil {
		return nil, verr
	}

	existing, err := s.parts.FindByItemAndUser(item.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("find participation: %w", err)
	}

	switch {
	case existing == nil:
		_, err = s.parts.Create(item.ID, userID, normalized)
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race against another request by the same user. The row
			// now exists; apply the same policy as if we had seen it.
			if !spec.revote {
				return nil, spec.alreadyErr
			}
			existing, err = s.parts.FindByItemAndUser(item.ID, userID)
			if err != nil {
				return nil, fmt.Errorf("reread participation: %w", err)
			}
			if existing == nil {
				return nil, fmt.Errorf("participation vanished after duplicate insert")
			}
			if _, err := s.parts.UpdateChoice(existing.ID, normalized); err != nil {
				return nil, fmt.Errorf("update participation: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("create participation: %w", err)
		}

	case spec.revote:
		if _, err := s.parts.UpdateChoice(existing.ID, normalized); err != nil {
			return nil, fmt.Errorf("update participation: %w", err)
		}

	default:
		return nil, spec.alreadyErr
	}

	if s.notify != nil {
		if user, uerr := s.users.GetByID(userID); uerr == nil && user != nil {
			s.notify(user.FamilyCode, user.ID, string(spec.kind)+".participated", item.ID)
		}
	}

	return s.buildView(spec.kind, item, userID)
}

// getOrCreate implements the one-item-per-day protocol: read, and on a miss
// generate content and insert. A unique-constraint conflict means another
// request created the day's item between our read and insert; that row wins
// and the freshly generated payload is discarded.
func (s *Service) getOrCreate(ctx context.Context, kind model.ItemKind, day string) (*model.DailyItem, error) {
	spec := specFor(kind)
	if spec == nil {
		return nil, apperr.ErrInvalidRequest.WithMessage("unknown content kind")
	}

	item, err := s.items.FindByDay(kind, day)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item != nil {
		return item, nil
	}

	category := ""
	if len(spec.categories) > 0 {
		category = spec.categories[rand.IntN(len(spec.categories))]
	}
	payload := s.gen.Generate(ctx, kind, category)

	item, err = s.items.Create(kind, day, payload)
	if errors.Is(err, store.ErrDuplicate) {
		item, err = s.items.FindByDay(kind, day)
		if err != nil {
			return nil, fmt.Errorf("reread item: %w", err)
		}
		if item == nil {
			return nil, fmt.Errorf("item for %s/%s vanished after duplicate insert", kind, day)
		}
		return item, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.logger.Info("created daily item", "kind", kind, "date", day, "id", item.ID)
	return item, nil
}

// familyMembers returns the users whose participations the requester may see,
// keyed by id. A user without a family sees only themselves.
func (s *Service) familyMembers(userID int64) (map[int64]*model.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.ErrUserNotFound
	}

	members := map[int64]*model.User{user.ID: user}
	if user.HasFamily() {
		list, err := s.users.ListByFamilyCode(user.FamilyCode)
		if err != nil {
			return nil, fmt.Errorf("list family: %w", err)
		}
		for i := range list {
			members[list[i].ID] = &list[i]
		}
	}
	return members, nil
}

// buildView assembles the family-scoped state of item for the requester.
func (s *Service) buildView(kind model.ItemKind, item *model.DailyItem, userID int64) (*View, error) {
	members, err := s.familyMembers(userID)
	if err != nil {
		return nil, err
	}

	all, err := s.parts.ListByItem(item.ID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	view := &View{Item: item}
	for i := range all {
		p := &all[i]
		member, visible := members[p.UserID]
		if !visible {
			continue
		}
		if p.UserID == userID {
			view.Participated = true
			choice := p.Choice
			view.MyChoice = &choice
		}

		switch kind {
		case model.KindQuestion:
			count, err := s.comments.CountByAnswer(p.ID)
			if err != nil {
				return nil, fmt.Errorf("count comments: %w", err)
			}
			view.Answers = append(view.Answers, AnswerView{
				ID:           p.ID,
				UserID:       p.UserID,
				AuthorName:   member.Name,
				AuthorRole:   member.FamilyRole,
				Content:      p.Choice,
				CommentCount: count,
				CreatedAt:    p.CreatedAt,
				UpdatedAt:    p.UpdatedAt,
			})
		default:
			if view.Counts == nil {
				view.Counts = map[string]int{}
			}
			view.Counts[p.Choice]++
			view.Voters = append(view.Voters, VoterView{
				UserID: p.UserID,
				Name:   member.Name,
				Choice: p.Choice,
			})
		}
	}

	// Questions keep the raw choice out of the vote fields.
	if kind == model.KindQuestion {
		view.MyChoice = nil
	}
	return view, nil
}
