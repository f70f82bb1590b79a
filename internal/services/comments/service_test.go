package comments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

type stubPosts struct {
	existing map[string]bool
}

func (p *stubPosts) Exists(_ context.Context, postID string) (bool, error) {
	return p.existing[postID], nil
}

func newTestService(t *testing.T, postIDs ...string) (*Service, *MemoryStore) {
	t.Helper()
	existing := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		existing[id] = true
	}
	store := NewMemoryStore()
	svc, err := NewService(store, &stubPosts{existing: existing}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestCreateAndListOrdersOldestFirst(t *testing.T) {
	svc, _ := newTestService(t, "post-1")
	ctx := context.Background()
	author := model.User{ID: 10, Name: "Иван"}

	base := time.Now()
	for i, text := range []string{"первый", "второй", "третий"} {
		tick := base.Add(time.Duration(i) * time.Millisecond)
		svc.now = func() time.Time { return tick }
		if _, err := svc.Create(ctx, "post-1", author, text); err != nil {
			t.Fatalf("create %q: %v", text, err)
		}
	}

	list, err := svc.ListByPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].Content != "первый" || list[2].Content != "третий" {
		t.Fatalf("wrong order: %q .. %q", list[0].Content, list[2].Content)
	}
	if list[0].UserName != "Иван" {
		t.Fatalf("author snapshot missing: %+v", list[0])
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, "post-1")
	ctx := context.Background()
	author := model.User{ID: 10, Name: "Иван"}

	if _, err := svc.Create(ctx, "post-1", author, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank content: want ErrValidation, got %v", err)
	}
	if _, err := svc.Create(ctx, "post-1", author, strings.Repeat("ж", MaxContentLength+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("oversized content: want ErrValidation, got %v", err)
	}
	if _, err := svc.Create(ctx, "missing", author, "где все"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("missing post: want ErrPostNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, "post-1", model.User{}, "аноним"); !errors.Is(err, ErrValidation) {
		t.Fatalf("anonymous author: want ErrValidation, got %v", err)
	}
}

func TestPurgeForPost(t *testing.T) {
	svc, _ := newTestService(t, "post-1")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "post-1", model.User{ID: 10, Name: "Иван"}, "удалят"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.PurgeForPost(ctx, "post-1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	list, err := svc.ListByPost(ctx, "post-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("comments survived purge: %+v", list)
	}
}
