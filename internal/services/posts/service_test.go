package posts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
)

type stubEvaluator struct {
	action   enums.ModerationAction
	recorded []model.ModerationDecision
	mu       sync.Mutex
}

func (e *stubEvaluator) Evaluate(_ context.Context, candidate modsvc.Candidate) (model.ModerationDecision, error) {
	return model.ModerationDecision{PostID: candidate.PostID, Action: e.action}, nil
}

func (e *stubEvaluator) RecordDecision(_ context.Context, decision model.ModerationDecision) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorded = append(e.recorded, decision)
	return nil
}

type recordingListener struct {
	mu    sync.Mutex
	posts []model.Post
}

func (l *recordingListener) OnPostApproved(_ context.Context, post model.Post) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posts = append(l.posts, post)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posts)
}

// waitForEvents polls because approval notifications run on their own
// goroutine.
func waitForEvents(t *testing.T, l *recordingListener, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d approval events, got %d", want, l.count())
}

func newTestService(action enums.ModerationAction) (*Service, *MemoryStore, *stubEvaluator) {
	store := NewMemoryStore()
	engine := &stubEvaluator{action: action}
	svc := NewService(store, engine, Config{
		TTL:          4 * time.Hour,
		DefaultLimit: 100,
		FallbackLat:  59.3733,
		FallbackLon:  28.6134,
	}, nil)
	return svc, store, engine
}

func ptr[T any](v T) *T { return &v }

func submitInput() SubmitInput {
	return SubmitInput{
		Description: "дпс стоят у моста",
		Latitude:    ptr(59.37),
		Longitude:   ptr(28.61),
		UserID:      7,
		UserName:    "ivan",
	}
}

func TestSubmitApprovedThroughEngine(t *testing.T) {
	svc, _, engine := newTestService(enums.ModerationActionApprove)

	post, err := svc.Submit(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if post.Status != enums.ModerationStatusApproved {
		t.Fatalf("unexpected status: %s", post.Status)
	}
	if post.ID == "" || !post.ExpiresAt.After(post.CreatedAt) {
		t.Fatalf("invalid identity/expiry: %+v", post)
	}
	if len(engine.recorded) != 1 {
		t.Fatalf("expected decision recorded, got %d", len(engine.recorded))
	}
}

func TestSubmitCriticalBypassesEngine(t *testing.T) {
	svc, _, engine := newTestService(enums.ModerationActionReject)

	input := submitInput()
	input.Severity = "critical"

	post, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if post.Status != enums.ModerationStatusApproved {
		t.Fatalf("critical post should auto-approve, got %s", post.Status)
	}
	if len(engine.recorded) != 0 {
		t.Fatalf("engine should be bypassed for critical severity")
	}
}

func TestSubmitDefaultsToCoverageCenter(t *testing.T) {
	svc, _, _ := newTestService(enums.ModerationActionApprove)

	input := submitInput()
	input.Latitude = nil
	input.Longitude = nil

	post, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if post.Latitude != 59.3733 || post.Longitude != 28.6134 {
		t.Fatalf("expected fallback coordinates, got %f,%f", post.Latitude, post.Longitude)
	}
}

func TestSubmitRejectsEmptyDescription(t *testing.T) {
	svc, _, _ := newTestService(enums.ModerationActionApprove)

	input := submitInput()
	input.Description = " "
	if _, err := svc.Submit(context.Background(), input); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestListActiveExcludesExpiredAndOrders(t *testing.T) {
	svc, store, _ := newTestService(enums.ModerationActionApprove)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	older := model.Post{ID: "a", Status: enums.ModerationStatusApproved, CreatedAt: base, ExpiresAt: base.Add(4 * time.Hour)}
	newer := model.Post{ID: "b", Status: enums.ModerationStatusApproved, CreatedAt: base.Add(time.Millisecond), ExpiresAt: base.Add(4 * time.Hour)}
	expired := model.Post{ID: "c", Status: enums.ModerationStatusApproved, CreatedAt: base.Add(-5 * time.Hour), ExpiresAt: base.Add(-time.Hour)}
	pending := model.Post{ID: "d", Status: enums.ModerationStatusPending, CreatedAt: base, ExpiresAt: base.Add(4 * time.Hour)}
	edgeExpired := model.Post{ID: "e", Status: enums.ModerationStatusApproved, CreatedAt: base.Add(-4 * time.Hour), ExpiresAt: base}

	for _, p := range []model.Post{older, newer, expired, pending, edgeExpired} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("insert %s: %v", p.ID, err)
		}
	}

	active, err := svc.ListActive(ctx, base, 0)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}

	if len(active) != 2 {
		t.Fatalf("expected 2 active posts, got %d", len(active))
	}
	if active[0].ID != "b" || active[1].ID != "a" {
		t.Fatalf("unexpected ordering: %s, %s", active[0].ID, active[1].ID)
	}
}

func TestConcurrentSubmissionsAllPersist(t *testing.T) {
	svc, _, _ := newTestService(enums.ModerationActionApprove)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Submit(ctx, submitInput()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit failed: %v", err)
	}

	active, err := svc.ListActive(ctx, time.Now().UTC(), n)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != n {
		t.Fatalf("expected %d posts, got %d", n, len(active))
	}
}

func TestConcurrentLikesDoNotLoseIncrements(t *testing.T) {
	svc, store, _ := newTestService(enums.ModerationActionApprove)
	ctx := context.Background()

	now := time.Now().UTC()
	post := model.Post{ID: "liked", Status: enums.ModerationStatusApproved, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Insert(ctx, post); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Like(ctx, "liked"); err != nil {
				t.Errorf("like: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, "liked")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Likes != n {
		t.Fatalf("lost like increments: got %d want %d", got.Likes, n)
	}
}

func TestApprovedListenerFiresOnApproval(t *testing.T) {
	svc, store, _ := newTestService(enums.ModerationActionFlag)
	listener := &recordingListener{}
	svc.AttachApprovedListener(listener)
	ctx := context.Background()

	post, err := svc.Submit(ctx, submitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.SetStatus(ctx, post.ID, enums.ModerationStatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	waitForEvents(t, listener, 1)
	if listener.posts[0].ID != post.ID {
		t.Fatalf("flagged submit must not notify; first event is %q", listener.posts[0].ID)
	}

	// re-approving must not re-notify
	if _, err := svc.SetStatus(ctx, post.ID, enums.ModerationStatusApproved); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if listener.count() != 1 {
		t.Fatalf("duplicate approval event")
	}

	_ = store
}

type blockingListener struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (l *blockingListener) OnPostApproved(ctx context.Context, _ model.Post) {
	close(l.started)
	<-l.release
	l.ctxErr <- ctx.Err()
}

func TestApprovalNotificationRunsInBackground(t *testing.T) {
	svc, _, _ := newTestService(enums.ModerationActionApprove)
	listener := &blockingListener{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	svc.AttachApprovedListener(listener)

	ctx, cancel := context.WithCancel(context.Background())

	// Submit must return while the listener is still blocked.
	if _, err := svc.Submit(ctx, submitInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-listener.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never started")
	}

	// Cancelling the caller's context must not reach the fan-out.
	cancel()
	close(listener.release)

	select {
	case err := <-listener.ctxErr:
		if err != nil {
			t.Fatalf("fan-out context should survive caller cancellation: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never finished")
	}
}

func TestRemoveEvictsPostLock(t *testing.T) {
	svc, store, _ := newTestService(enums.ModerationActionApprove)
	ctx := context.Background()

	now := time.Now().UTC()
	post := model.Post{ID: "gone", Status: enums.ModerationStatusApproved, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Insert(ctx, post); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := svc.Like(ctx, "gone"); err != nil {
		t.Fatalf("like: %v", err)
	}

	if err := svc.Remove(ctx, "gone"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	svc.mu.Lock()
	_, held := svc.locks["gone"]
	svc.mu.Unlock()
	if held {
		t.Fatalf("per-post lock should be evicted after removal")
	}
}

func TestUpdateAndRemoveUnknownID(t *testing.T) {
	svc, _, _ := newTestService(enums.ModerationActionApprove)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "missing", Patch{Description: ptr("x")}); err == nil {
		t.Fatalf("expected NotFound for update")
	}
	if err := svc.Remove(ctx, "missing"); err == nil {
		t.Fatalf("expected NotFound for remove")
	}
}
