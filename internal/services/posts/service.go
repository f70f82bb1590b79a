package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("post not found")
)

// Store is the persistence boundary for posts. Production uses the
// postgres repo; the in-memory store covers tests and degraded mode.
type Store interface {
	Insert(ctx context.Context, post model.Post) error
	Get(ctx context.Context, id string) (model.Post, error)
	ListActive(ctx context.Context, now time.Time, limit int) ([]model.Post, error)
	ListByStatus(ctx context.Context, status enums.ModerationStatus, limit int) ([]model.Post, error)
	Update(ctx context.Context, post model.Post) error
	Delete(ctx context.Context, id string) error
}

// Evaluator is the moderation seam; *moderation.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, candidate modsvc.Candidate) (model.ModerationDecision, error)
	RecordDecision(ctx context.Context, decision model.ModerationDecision) error
}

// ApprovedListener is notified whenever a post reaches the approved state,
// either straight from submission or through moderator review.
type ApprovedListener interface {
	OnPostApproved(ctx context.Context, post model.Post)
}

type Config struct {
	TTL          time.Duration
	DefaultLimit int
	FallbackLat  float64
	FallbackLon  float64
}

type SubmitInput struct {
	Description string
	Latitude    *float64
	Longitude   *float64
	Address     string
	UserID      int64
	UserName    string
	Category    string
	Severity    string
	PhotoKey    string
}

type Patch struct {
	Description *string
	Address     *string
	Severity    *string
	PhotoKey    *string
}

type Service struct {
	store    Store
	engine   Evaluator
	listener ApprovedListener
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, engine Evaluator, cfg Config, logger *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 4 * time.Hour
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		engine: engine,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		locks:  map[string]*sync.Mutex{},
	}
}

func (s *Service) AttachApprovedListener(listener ApprovedListener) {
	s.listener = listener
}

// Submit assigns identity and expiry, routes the candidate through
// moderation (critical severity auto-approves, bypassing the engine) and
// persists the post with the decided status.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (model.Post, error) {
	if s.store == nil {
		return model.Post{}, fmt.Errorf("post store is nil")
	}
	if strings.TrimSpace(input.Description) == "" {
		return model.Post{}, fmt.Errorf("description is required: %w", ErrValidation)
	}

	lat, lon := s.cfg.FallbackLat, s.cfg.FallbackLon
	if input.Latitude != nil && input.Longitude != nil {
		if err := rules.ValidateCoordinates(*input.Latitude, *input.Longitude); err != nil {
			return model.Post{}, fmt.Errorf("coordinates: %w", ErrValidation)
		}
		lat, lon = *input.Latitude, *input.Longitude
	}

	now := s.now().UTC()
	post := model.Post{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(input.Description),
		Latitude:    lat,
		Longitude:   lon,
		Address:     strings.TrimSpace(input.Address),
		Category:    enums.ParsePostCategory(input.Category),
		Severity:    enums.ParseSeverity(input.Severity),
		Status:      enums.ModerationStatusPending,
		UserID:      input.UserID,
		UserName:    strings.TrimSpace(input.UserName),
		PhotoKey:    strings.TrimSpace(input.PhotoKey),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}

	if post.Severity == enums.SeverityCritical {
		post.Status = enums.ModerationStatusApproved
	} else if s.engine != nil {
		decision, err := s.engine.Evaluate(ctx, modsvc.Candidate{
			PostID:      post.ID,
			Description: post.Description,
			Latitude:    post.Latitude,
			Longitude:   post.Longitude,
			Category:    post.Category,
			Severity:    post.Severity,
			HasPhoto:    post.PhotoKey != "",
		})
		if err != nil {
			return model.Post{}, fmt.Errorf("evaluate post: %w", err)
		}
		if err := s.engine.RecordDecision(ctx, decision); err != nil {
			s.logger.Warn("record moderation decision failed", zap.Error(err), zap.String("post_id", post.ID))
		}
		post.Status = statusForAction(decision.Action)
	}

	if err := s.store.Insert(ctx, post); err != nil {
		return model.Post{}, fmt.Errorf("insert post: %w", err)
	}

	if post.Status == enums.ModerationStatusApproved {
		s.notifyApproved(ctx, post)
	}

	return post, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Post, error) {
	if strings.TrimSpace(id) == "" {
		return model.Post{}, fmt.Errorf("post id is required: %w", ErrValidation)
	}
	return s.store.Get(ctx, id)
}

// ListActive returns approved, unexpired posts ordered newest first. The
// ordering is part of the API contract, not an implementation detail.
func (s *Service) ListActive(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > s.cfg.DefaultLimit {
		limit = s.cfg.DefaultLimit
	}
	if now.IsZero() {
		now = s.now().UTC()
	}
	return s.store.ListActive(ctx, now, limit)
}

func (s *Service) ListFlagged(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > s.cfg.DefaultLimit {
		limit = s.cfg.DefaultLimit
	}
	return s.store.ListByStatus(ctx, enums.ModerationStatusFlagged, limit)
}

// Update applies a partial edit to a post. Same-id updates are serialized
// so concurrent edits cannot lose writes.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (model.Post, error) {
	if strings.TrimSpace(id) == "" {
		return model.Post{}, fmt.Errorf("post id is required: %w", ErrValidation)
	}

	unlock := s.lockPost(id)
	defer unlock()

	post, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Post{}, err
	}

	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return model.Post{}, fmt.Errorf("description cannot be emptied: %w", ErrValidation)
		}
		post.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Address != nil {
		post.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.Severity != nil {
		post.Severity = enums.ParseSeverity(*patch.Severity)
	}
	if patch.PhotoKey != nil {
		post.PhotoKey = strings.TrimSpace(*patch.PhotoKey)
	}

	if err := s.store.Update(ctx, post); err != nil {
		return model.Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// SetStatus transitions moderation state, used by the human review flow.
func (s *Service) SetStatus(ctx context.Context, id string, status enums.ModerationStatus) (model.Post, error) {
	if strings.TrimSpace(id) == "" {
		return model.Post{}, fmt.Errorf("post id is required: %w", ErrValidation)
	}

	unlock := s.lockPost(id)
	defer unlock()

	post, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Post{}, err
	}

	previous := post.Status
	post.Status = status
	if err := s.store.Update(ctx, post); err != nil {
		return model.Post{}, fmt.Errorf("update post status: %w", err)
	}

	if status == enums.ModerationStatusApproved && previous != enums.ModerationStatusApproved {
		s.notifyApproved(ctx, post)
	}
	return post, nil
}

func (s *Service) Like(ctx context.Context, id string) (model.Post, error) {
	if strings.TrimSpace(id) == "" {
		return model.Post{}, fmt.Errorf("post id is required: %w", ErrValidation)
	}

	unlock := s.lockPost(id)
	defer unlock()

	post, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Post{}, err
	}

	post.Likes++
	if err := s.store.Update(ctx, post); err != nil {
		return model.Post{}, fmt.Errorf("update like counter: %w", err)
	}
	return post, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("post id is required: %w", ErrValidation)
	}

	unlock := s.lockPost(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return nil
}

// notifyApproved fans out in the background; the caller's request must
// not wait for subscriber delivery, and its cancellation must not cut
// the fan-out short.
func (s *Service) notifyApproved(ctx context.Context, post model.Post) {
	if s.listener == nil {
		return
	}
	go s.listener.OnPostApproved(context.WithoutCancel(ctx), post)
}

// lockPost serializes mutations for one post id; independent ids never
// contend.
func (s *Service) lockPost(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func statusForAction(action enums.ModerationAction) enums.ModerationStatus {
	switch action {
	case enums.ModerationActionApprove:
		return enums.ModerationStatusApproved
	case enums.ModerationActionReject:
		return enums.ModerationStatusRejected
	default:
		return enums.ModerationStatusFlagged
	}
}
