package daily

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/database"
	"github.com/dadam-app/dadam/internal/model"
	"github.com/dadam-app/dadam/internal/store"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   int
	respond func(systemPrompt, userPrompt string) (string, error)
}

func (f *fakeClient) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(systemPrompt, userPrompt)
}

func respondJSON(body string) func(string, string) (string, error) {
	return func(string, string) (string, error) { return body, nil }
}

type testEnv struct {
	svc      *Service
	users    *store.UserStore
	parts    *store.ParticipationStore
	comments *store.CommentStore
	client   *fakeClient
}

func newTestEnv(t *testing.T, respond func(string, string) (string, error)) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// Every pooled connection to :memory: is a distinct database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &fakeClient{respond: respond}
	users := store.NewUserStore(db)
	parts := store.NewParticipationStore(db)
	comments := store.NewCommentStore(db)
	svc := NewService(store.NewDailyItemStore(db), parts, users, comments, NewGenerator(client, logger), time.UTC, logger)
	return &testEnv{svc: svc, users: users, parts: parts, comments: comments, client: client}
}

func (e *testEnv) createUser(t *testing.T, email, name, familyCode string) *model.User {
	t.Helper()
	user, err := e.users.Create(email, "hash", name, "MOM", familyCode)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestTodayItemCreatesOncePerDay(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "What made you laugh today?", "category": "MEMORY"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	first, err := env.svc.TodayItem(context.Background(), model.KindQuestion, user.ID)
	if err != nil {
		t.Fatalf("first TodayItem: %v", err)
	}
	if first.Item.Payload.Content != "What made you laugh today?" {
		t.Errorf("content = %q", first.Item.Payload.Content)
	}
	if first.Item.Date != env.svc.Today() {
		t.Errorf("date = %q, want today", first.Item.Date)
	}

	second, err := env.svc.TodayItem(context.Background(), model.KindQuestion, user.ID)
	if err != nil {
		t.Fatalf("second TodayItem: %v", err)
	}
	if second.Item.ID != first.Item.ID {
		t.Errorf("second call created a new item: %d vs %d", second.Item.ID, first.Item.ID)
	}
	if env.client.calls != 1 {
		t.Errorf("generator called %d times, want 1", env.client.calls)
	}
}

func TestTodayItemConcurrent(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "Mountains vs sea?", "option_a": "Mountains", "option_b": "Sea", "category": "LIFE"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	const n = 16
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, err := env.svc.TodayItem(context.Background(), model.KindBalance, user.ID)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = view.Item.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("request %d got item %d, others got %d", i, ids[i], ids[0])
		}
	}
}

func TestGenerationFallsBack(t *testing.T) {
	cases := []struct {
		name    string
		respond func(string, string) (string, error)
	}{
		{"client error", func(string, string) (string, error) { return "", errors.New("upstream down") }},
		{"not json", respondJSON("sorry, I cannot help with that")},
		{"blank content", respondJSON(`{"content": "  ", "category": "MEMORY"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.respond)
			user := env.createUser(t, "a@test.com", "Ara", "")

			view, err := env.svc.TodayItem(context.Background(), model.KindQuestion, user.ID)
			if err != nil {
				t.Fatalf("TodayItem: %v", err)
			}
			want := specFor(model.KindQuestion).fallback()
			if view.Item.Payload.Content != want.Content || view.Item.Payload.Category != want.Category {
				t.Errorf("payload = %+v, want fallback %+v", view.Item.Payload, want)
			}
		})
	}
}

func TestGenerationSanitizes(t *testing.T) {
	t.Run("unknown question category", func(t *testing.T) {
		env := newTestEnv(t, respondJSON(`{"content": "Best meal ever?", "category": "FOOD"}`))
		user := env.createUser(t, "a@test.com", "Ara", "")
		view, err := env.svc.TodayItem(context.Background(), model.KindQuestion, user.ID)
		if err != nil {
			t.Fatalf("TodayItem: %v", err)
		}
		if view.Item.Payload.Category != "MEMORY" {
			t.Errorf("category = %q, want MEMORY", view.Item.Payload.Category)
		}
		if view.Item.Payload.Content != "Best meal ever?" {
			t.Errorf("content = %q", view.Item.Payload.Content)
		}
	})

	t.Run("quiz without choices", func(t *testing.T) {
		env := newTestEnv(t, respondJSON(`{"question": "What does 'mid' mean?", "answer": "Mediocre, unremarkable", "choices": [], "explanation": "Used to dismiss something as average."}`))
		user := env.createUser(t, "a@test.com", "Ara", "")
		view, err := env.svc.TodayItem(context.Background(), model.KindQuiz, user.ID)
		if err != nil {
			t.Fatalf("TodayItem: %v", err)
		}
		choices := view.Item.Payload.Choices
		if len(choices) != 1 || choices[0] != "Mediocre, unremarkable" {
			t.Errorf("choices = %v, want just the answer", choices)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		env := newTestEnv(t, respondJSON("```json\n{\"content\": \"Favorite trip?\", \"category\": \"TRAVEL\"}\n```"))
		user := env.createUser(t, "a@test.com", "Ara", "")
		view, err := env.svc.TodayItem(context.Background(), model.KindQuestion, user.ID)
		if err != nil {
			t.Fatalf("TodayItem: %v", err)
		}
		if view.Item.Payload.Content != "Favorite trip?" {
			t.Errorf("content = %q", view.Item.Payload.Content)
		}
	})
}

func TestQuestionAnswerIsWriteOnce(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "What made you smile?", "category": "MEMORY"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	view, err := env.svc.Participate(context.Background(), model.KindQuestion, user.ID, "A long walk with dad")
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if len(view.Answers) != 1 || view.Answers[0].Content != "A long walk with dad" {
		t.Fatalf("answers = %+v", view.Answers)
	}
	if !view.Participated {
		t.Error("Participated = false after answering")
	}

	_, err = env.svc.Participate(context.Background(), model.KindQuestion, user.ID, "Trying again")
	if !errors.Is(err, apperr.ErrAlreadyAnswered) {
		t.Fatalf("second answer error = %v, want ErrAlreadyAnswered", err)
	}
}

func TestBalanceVoteCanChange(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "Early bird vs night owl?", "option_a": "Early bird", "option_b": "Night owl", "category": "LIFE"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	first, err := env.svc.Participate(context.Background(), model.KindBalance, user.ID, "a")
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if first.Counts["A"] != 1 || first.MyChoice == nil || *first.MyChoice != "A" {
		t.Fatalf("after first vote: counts=%v my=%v", first.Counts, first.MyChoice)
	}

	second, err := env.svc.Participate(context.Background(), model.KindBalance, user.ID, "B")
	if err != nil {
		t.Fatalf("revote: %v", err)
	}
	if second.Counts["A"] != 0 || second.Counts["B"] != 1 {
		t.Errorf("after revote counts = %v, want only B", second.Counts)
	}
	if len(second.Voters) != 1 {
		t.Errorf("voters = %d, want 1 (revote must not add a row)", len(second.Voters))
	}
	if second.MyChoice == nil || *second.MyChoice != "B" {
		t.Errorf("my choice = %v, want B", second.MyChoice)
	}
}

func TestBalanceVoteRejectsUnknownOption(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "Early bird vs night owl?", "option_a": "Early bird", "option_b": "Night owl", "category": "LIFE"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	_, err := env.svc.Participate(context.Background(), model.KindBalance, user.ID, "C")
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestQuizVote(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "What does 'rizz' mean?", "answer": "Charisma", "choices": ["Charisma", "A dance move", "A snack"], "explanation": "Short for charisma."}`))
	user := env.createUser(t, "a@test.com", "Ara", "")

	for _, bad := range []string{"-1", "3", "first"} {
		if _, err := env.svc.Participate(context.Background(), model.KindQuiz, user.ID, bad); !errors.Is(err, apperr.ErrInvalidRequest) {
			t.Errorf("choice %q: error = %v, want ErrInvalidRequest", bad, err)
		}
	}

	view, err := env.svc.Participate(context.Background(), model.KindQuiz, user.ID, "1")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if view.Counts["1"] != 1 || view.MyChoice == nil || *view.MyChoice != "1" {
		t.Fatalf("after vote: counts=%v my=%v", view.Counts, view.MyChoice)
	}

	if _, err := env.svc.Participate(context.Background(), model.KindQuiz, user.ID, "0"); !errors.Is(err, apperr.ErrAlreadyParticipated) {
		t.Fatalf("second vote error = %v, want ErrAlreadyParticipated", err)
	}
}

func TestViewIsFamilyScoped(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "Tea vs coffee?", "option_a": "Tea", "option_b": "Coffee", "category": "FOOD"}`))
	mom := env.createUser(t, "mom@kim.com", "Mom Kim", "DADAM-KIM001")
	dad := env.createUser(t, "dad@kim.com", "Dad Kim", "DADAM-KIM001")
	stranger := env.createUser(t, "x@lee.com", "Lee", "DADAM-LEE001")
	solo := env.createUser(t, "solo@test.com", "Solo", "")

	ctx := context.Background()
	for _, u := range []*model.User{mom, dad, stranger, solo} {
		if _, err := env.svc.Participate(ctx, model.KindBalance, u.ID, "A"); err != nil {
			t.Fatalf("vote by %s: %v", u.Email, err)
		}
	}

	momView, err := env.svc.TodayItem(ctx, model.KindBalance, mom.ID)
	if err != nil {
		t.Fatalf("mom view: %v", err)
	}
	if momView.Counts["A"] != 2 || len(momView.Voters) != 2 {
		t.Errorf("mom sees counts=%v voters=%d, want her family of 2", momView.Counts, len(momView.Voters))
	}

	soloView, err := env.svc.TodayItem(ctx, model.KindBalance, solo.ID)
	if err != nil {
		t.Fatalf("solo view: %v", err)
	}
	if soloView.Counts["A"] != 1 || len(soloView.Voters) != 1 {
		t.Errorf("solo user sees counts=%v voters=%d, want only their own vote", soloView.Counts, len(soloView.Voters))
	}
	if soloView.Voters[0].UserID != solo.ID {
		t.Errorf("solo user sees someone else's vote: %+v", soloView.Voters[0])
	}
}

func TestQuestionViewIncludesCommentCounts(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "Best childhood memory?", "category": "MEMORY"}`))
	mom := env.createUser(t, "mom@kim.com", "Mom Kim", "DADAM-KIM001")
	dad := env.createUser(t, "dad@kim.com", "Dad Kim", "DADAM-KIM001")

	ctx := context.Background()
	momView, err := env.svc.Participate(ctx, model.KindQuestion, mom.ID, "The beach trip in 1999")
	if err != nil {
		t.Fatalf("mom answers: %v", err)
	}
	answerID := momView.Answers[0].ID
	for i := 0; i < 2; i++ {
		if _, err := env.comments.Create(answerID, dad.ID, fmt.Sprintf("comment %d", i)); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}

	dadView, err := env.svc.TodayItem(ctx, model.KindQuestion, dad.ID)
	if err != nil {
		t.Fatalf("dad view: %v", err)
	}
	if len(dadView.Answers) != 1 {
		t.Fatalf("dad sees %d answers, want 1", len(dadView.Answers))
	}
	a := dadView.Answers[0]
	if a.AuthorName != "Mom Kim" || a.CommentCount != 2 {
		t.Errorf("answer = %+v, want mom's answer with 2 comments", a)
	}
	if dadView.Participated {
		t.Error("dad marked as participated without answering")
	}
}

func TestItemByDate(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "A question", "category": "HOBBY"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")
	ctx := context.Background()

	if _, err := env.svc.TodayItem(ctx, model.KindQuestion, user.ID); err != nil {
		t.Fatalf("seed today: %v", err)
	}

	view, err := env.svc.ItemByDate(model.KindQuestion, env.svc.Today(), user.ID)
	if err != nil {
		t.Fatalf("ItemByDate today: %v", err)
	}
	if view.Item.Payload.Content != "A question" {
		t.Errorf("content = %q", view.Item.Payload.Content)
	}

	if _, err := env.svc.ItemByDate(model.KindQuestion, "2020-01-01", user.ID); !errors.Is(err, apperr.ErrQuestionNotFound) {
		t.Errorf("missing question date: error = %v, want ErrQuestionNotFound", err)
	}
	if _, err := env.svc.ItemByDate(model.KindBalance, "2020-01-01", user.ID); !errors.Is(err, apperr.ErrGameNotFound) {
		t.Errorf("missing balance date: error = %v, want ErrGameNotFound", err)
	}
	if _, err := env.svc.ItemByDate(model.KindQuestion, "01/02/2020", user.ID); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Errorf("bad date format: error = %v, want ErrInvalidRequest", err)
	}
}

func TestAnswerUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "A question", "category": "HOBBY"}`))
	author := env.createUser(t, "a@test.com", "Ara", "DADAM-KIM001")
	other := env.createUser(t, "b@test.com", "Bora", "DADAM-KIM001")
	ctx := context.Background()

	view, err := env.svc.Participate(ctx, model.KindQuestion, author.ID, "first draft")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	answerID := view.Answers[0].ID

	if _, err := env.svc.UpdateAnswer(answerID, other.ID, "hijack"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-author update: error = %v, want ErrForbidden", err)
	}

	updated, err := env.svc.UpdateAnswer(answerID, author.ID, "final version")
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if updated.Choice != "final version" {
		t.Errorf("content = %q after update", updated.Choice)
	}
	if updated.UpdatedAt == nil {
		t.Error("UpdatedAt not set by update")
	}

	if err := env.svc.DeleteAnswer(answerID, other.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-author delete: error = %v, want ErrForbidden", err)
	}
	if err := env.svc.DeleteAnswer(answerID, author.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if _, err := env.svc.UpdateAnswer(answerID, author.ID, "ghost"); !errors.Is(err, apperr.ErrQuestionNotFound) {
		t.Errorf("update after delete: error = %v, want ErrQuestionNotFound", err)
	}
}

func TestVoteIsNotAnAnswer(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"question": "Tea vs coffee?", "option_a": "Tea", "option_b": "Coffee", "category": "FOOD"}`))
	user := env.createUser(t, "a@test.com", "Ara", "")
	ctx := context.Background()

	view, err := env.svc.Participate(ctx, model.KindBalance, user.ID, "A")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	vote, err := env.parts.FindByItemAndUser(view.Item.ID, user.ID)
	if err != nil || vote == nil {
		t.Fatalf("find vote: %v", err)
	}
	if _, err := env.svc.UpdateAnswer(vote.ID, user.ID, "oops"); !errors.Is(err, apperr.ErrQuestionNotFound) {
		t.Errorf("error = %v, want ErrQuestionNotFound", err)
	}
}

func TestNotifierReceivesAuthorScope(t *testing.T) {
	env := newTestEnv(t, respondJSON(`{"content": "What did you cook this week?", "category": "HOBBY"}`))
	solo := env.createUser(t, "solo@test.com", "Solo", "")
	mom := env.createUser(t, "mom@kim.com", "Mom", "DADAM-KIM001")

	type event struct {
		familyCode string
		userID     int64
		name       string
		itemID     int64
	}
	var events []event
	env.svc.SetNotifier(func(familyCode string, userID int64, name string, itemID int64) {
		events = append(events, event{familyCode, userID, name, itemID})
	})
	ctx := context.Background()

	view, err := env.svc.Participate(ctx, model.KindQuestion, solo.ID, "Kimchi stew")
	if err != nil {
		t.Fatalf("solo answer: %v", err)
	}
	if _, err := env.svc.Participate(ctx, model.KindQuestion, mom.ID, "Pancakes"); err != nil {
		t.Fatalf("mom answer: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	// A user without a family still gets the event, addressed to them.
	if events[0].familyCode != "" || events[0].userID != solo.ID {
		t.Errorf("solo event scope = (%q, %d), want (\"\", %d)", events[0].familyCode, events[0].userID, solo.ID)
	}
	if events[0].name != "question.participated" || events[0].itemID != view.Item.ID {
		t.Errorf("solo event = (%q, %d), want (question.participated, %d)", events[0].name, events[0].itemID, view.Item.ID)
	}
	if events[1].familyCode != "DADAM-KIM001" || events[1].userID != mom.ID {
		t.Errorf("family event scope = (%q, %d), want (DADAM-KIM001, %d)", events[1].familyCode, events[1].userID, mom.ID)
	}
}
