package store

import (
	"testing"

	"github.com/dadam-app/dadam/internal/database"
	"github.com/dadam-app/dadam/internal/model"
)

func setupCommentTestDB(t *testing.T) (*CommentStore, *ParticipationStore, *DailyItemStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return NewCommentStore(db), NewParticipationStore(db), NewDailyItemStore(db), NewUserStore(db)
}

func TestCommentCreateListCount(t *testing.T) {
	cs, ps, is, us := setupCommentTestDB(t)

	item, err := is.Create(model.KindQuestion, "2025-06-01", model.Payload{Content: "q", Category: "MEMORY"})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	author, _ := us.Create("author@example.com", "h", "Author", "parent", "DADAM-ABC123")
	reader, _ := us.Create("reader@example.com", "h", "Reader", "child", "DADAM-ABC123")

	answer, err := ps.Create(item.ID, author.ID, "my answer")
	if err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	c, err := cs.Create(answer.ID, reader.ID, "nice one!")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if c.Content != "nice one!" {
		t.Errorf("content = %q", c.Content)
	}

	if _, err := cs.Create(answer.ID, author.ID, "thanks"); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	list, err := cs.ListByAnswer(answer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Content != "nice one!" {
		t.Errorf("list not in creation order: %+v", list)
	}

	byAnswer, err := cs.CountByAnswer(answer.ID)
	if err != nil {
		t.Fatalf("count by answer: %v", err)
	}
	if byAnswer != 2 {
		t.Errorf("count by answer = %d, want 2", byAnswer)
	}

	byUser, err := cs.CountByUser(reader.ID)
	if err != nil {
		t.Fatalf("count by user: %v", err)
	}
	if byUser != 1 {
		t.Errorf("count by user = %d, want 1", byUser)
	}
}
