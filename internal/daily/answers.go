package daily

import (
	"fmt"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/model"
)

// UpdateAnswer rewrites the content of the caller's own answer to a daily
// question. Only the author may edit, and only answers (not votes).
func (s *Service) UpdateAnswer(answerID, userID int64, content string) (*model.Participation, error) {
	answer, err := s.ownedAnswer(answerID, userID)
	if err != nil {
		return nil, err
	}

	normalized, verr := specFor(model.KindQuestion).validateChoice(nil, content)
	if verr != nil {
		return nil, verr
	}

	updated, err := s.parts.UpdateContent(answer.ID, normalized)
	if err != nil {
		return nil, fmt.Errorf("update answer: %w", err)
	}
	return updated, nil
}

// DeleteAnswer removes the caller's own answer.
func (s *Service) DeleteAnswer(answerID, userID int64) error {
	answer, err := s.ownedAnswer(answerID, userID)
	if err != nil {
		return err
	}
	if err := s.parts.Delete(answer.ID); err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	return nil
}

// ownedAnswer loads a participation, checks it is an answer to a question
// item, and checks the caller wrote it.
func (s *Service) ownedAnswer(answerID, userID int64) (*model.Participation, error) {
	answer, err := s.parts.FindByID(answerID)
	if err != nil {
		return nil, fmt.Errorf("find answer: %w", err)
	}
	if answer == nil {
		return nil, apperr.ErrQuestionNotFound.WithMessage("answer not found")
	}

	item, err := s.items.FindByID(answer.ItemID)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item == nil || item.Kind != model.KindQuestion {
		return nil, apperr.ErrQuestionNotFound.WithMessage("answer not found")
	}

	if answer.UserID != userID {
		return nil, apperr.ErrForbidden
	}
	return answer, nil
}
