package daily

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/model"
)

// MaxAnswerLength caps a free-text answer to the daily question.
const MaxAnswerLength = 1000

// kindSpec captures everything that differs between the three daily content
// kinds: prompts, fallback content, payload sanitation, choice validation, and
// the revote policy. The service itself is kind-agnostic.
type kindSpec struct {
	kind model.ItemKind

	// revote kinds update the existing row on repeat participation;
	// write-once kinds reject with alreadyErr.
	revote     bool
	alreadyErr *apperr.Error

	notFoundErr *apperr.Error

	// categories non-empty means the server picks one at random before the
	// generation call and the prompt pins it.
	categories   []string
	systemPrompt string
	userPrompt   func(category string) string

	fallback func() model.Payload

	// sanitize repairs a parsed payload where possible and reports whether
	// it is usable; unusable payloads are replaced by fallback().
	sanitize func(p model.Payload) (model.Payload, bool)

	// validateChoice normalizes a proposed choice against the concrete item,
	// or returns a validation error.
	validateChoice func(item *model.DailyItem, choice string) (string, *apperr.Error)
}

var questionCategories = map[string]bool{"TRAVEL": true, "HOBBY": true, "MEMORY": true}

var kinds = map[model.ItemKind]*kindSpec{
	model.KindQuestion: {
		kind:        model.KindQuestion,
		revote:      false,
		alreadyErr:  apperr.ErrAlreadyAnswered,
		notFoundErr: apperr.ErrQuestionNotFound,
		systemPrompt: "You are a generator of family conversation questions. " +
			"Produce a warm question that invites a meaningful conversation between family members. " +
			"Respond with JSON only.",
		userPrompt: func(string) string {
			return `Respond with JSON in exactly this shape and nothing else:

{
  "content": "the question",
  "category": "one of TRAVEL | HOBBY | MEMORY"
}`
		},
		fallback: func() model.Payload {
			return model.Payload{
				Content:  "What moment were you most thankful for recently?",
				Category: "MEMORY",
			}
		},
		sanitize: func(p model.Payload) (model.Payload, bool) {
			p.Content = strings.TrimSpace(p.Content)
			if p.Content == "" {
				return p, false
			}
			if !questionCategories[p.Category] {
				p.Category = "MEMORY"
			}
			return p, true
		},
		validateChoice: func(_ *model.DailyItem, choice string) (string, *apperr.Error) {
			content := strings.TrimSpace(choice)
			if content == "" {
				return "", apperr.ErrInvalidRequest.WithMessage("answer content is required")
			}
			if len([]rune(content)) > MaxAnswerLength {
				return "", apperr.ErrInvalidRequest.WithMessage(fmt.Sprintf("answer must be at most %d characters", MaxAnswerLength))
			}
			return content, nil
		},
	},

	model.KindBalance: {
		kind:        model.KindBalance,
		revote:      true,
		notFoundErr: apperr.ErrGameNotFound,
		categories:  []string{"FOOD", "HOBBY", "LIFE", "RELATIONSHIP", "MEMORY"},
		systemPrompt: "You are a generator of family balance games that help generations talk to each other. " +
			"Never include politics, hate, violence, or suggestive topics. " +
			"Only use themes family members of all ages can discuss comfortably. " +
			"Respond with JSON only.",
		userPrompt: func(category string) string {
			return fmt.Sprintf(`Respond with JSON in exactly this shape and nothing else:

{
  "question": "one sentence naming both options, e.g. 'A vs B, which do you pick?'",
  "option_a": "option A, short phrase",
  "option_b": "option B, short phrase",
  "category": %[1]q
}

Rules:
- The category field must be exactly %[1]q, and the game topic must fit that category.
- Avoid worn-out patterns such as 'stay home vs go out'; pick a specific, concrete situation.`, category)
		},
		fallback: func() model.Payload {
			return model.Payload{
				Question: "Family trip style: a packed itinerary vs wandering wherever the day takes you?",
				OptionA:  "Packed itinerary",
				OptionB:  "Wander freely",
				Category: "LIFE",
			}
		},
		sanitize: func(p model.Payload) (model.Payload, bool) {
			p.Question = strings.TrimSpace(p.Question)
			p.OptionA = strings.TrimSpace(p.OptionA)
			p.OptionB = strings.TrimSpace(p.OptionB)
			if p.Question == "" || p.OptionA == "" || p.OptionB == "" {
				return p, false
			}
			return p, true
		},
		validateChoice: func(_ *model.DailyItem, choice string) (string, *apperr.Error) {
			c := strings.ToUpper(strings.TrimSpace(choice))
			if c != "A" && c != "B" {
				return "", apperr.ErrInvalidRequest.WithMessage(`choice must be "A" or "B"`)
			}
			return c, nil
		},
	},

	model.KindQuiz: {
		kind:        model.KindQuiz,
		revote:      false,
		alreadyErr:  apperr.ErrAlreadyParticipated,
		notFoundErr: apperr.ErrGameNotFound,
		systemPrompt: "You are a generator of multiple-choice quizzes about current slang used by teens and twenty-somethings. " +
			"Never use political, hateful, violent, demeaning, or sexual expressions; keep every quiz safe for a family audience. " +
			"Respond with JSON only.",
		userPrompt: func(string) string {
			return `Respond with JSON in exactly this shape and nothing else:

{
  "question": "What does '...' mean?",
  "answer": "the correct meaning, as a sentence",
  "choices": ["option 1", "option 2", "option 3"],
  "explanation": "a short note on why the answer is right and when the slang is used"
}

Rules:
- Pick one piece of slang young people actually use.
- choices must contain exactly the answer sentence plus two plausible but wrong meanings.`
		},
		fallback: func() model.Payload {
			return model.Payload{
				Question: "What does 'touch grass' mean?",
				Answer:   "Step away from the screen and reconnect with the real world",
				Choices: []string{
					"Mow the lawn as a weekend chore",
					"Step away from the screen and reconnect with the real world",
					"Start a gardening hobby",
				},
				Explanation: "'Touch grass' is a playful way of telling someone they have been online too long and should go outside for a while.",
			}
		},
		sanitize: func(p model.Payload) (model.Payload, bool) {
			p.Question = strings.TrimSpace(p.Question)
			p.Answer = strings.TrimSpace(p.Answer)
			if p.Question == "" || p.Answer == "" {
				return p, false
			}
			// An empty choice set would make every vote invalid; the answer
			// alone still satisfies the schema.
			if len(p.Choices) == 0 {
				p.Choices = []string{p.Answer}
			}
			return p, true
		},
		validateChoice: func(item *model.DailyItem, choice string) (string, *apperr.Error) {
			idx, err := strconv.Atoi(strings.TrimSpace(choice))
			if err != nil {
				return "", apperr.ErrInvalidRequest.WithMessage("choice must be a choice index")
			}
			if idx < 0 || idx >= len(item.Payload.Choices) {
				return "", apperr.ErrInvalidRequest.WithMessage(fmt.Sprintf("choice index must be between 0 and %d", len(item.Payload.Choices)-1))
			}
			return strconv.Itoa(idx), nil
		},
	},
}

// specFor returns the descriptor for kind, or nil for an unknown kind.
func specFor(kind model.ItemKind) *kindSpec {
	return kinds[kind]
}
