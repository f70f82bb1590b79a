package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

const MaxContentLength = 500

var (
	ErrValidation   = errors.New("invalid comment input")
	ErrPostNotFound = errors.New("post not found")
)

type Store interface {
	Insert(ctx context.Context, comment model.Comment) error
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// PostChecker confirms the target post exists before a comment lands.
type PostChecker interface {
	Exists(ctx context.Context, postID string) (bool, error)
}

type Service struct {
	store  Store
	posts  PostChecker
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, posts PostChecker, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("comments store is nil")
	}
	if posts == nil {
		return nil, fmt.Errorf("post checker is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, posts: posts, logger: logger, now: time.Now}, nil
}

func (s *Service) Create(ctx context.Context, postID string, author model.User, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if postID == "" || content == "" {
		return model.Comment{}, ErrValidation
	}
	if len([]rune(content)) > MaxContentLength {
		return model.Comment{}, fmt.Errorf("comment longer than %d characters: %w", MaxContentLength, ErrValidation)
	}
	if author.ID <= 0 {
		return model.Comment{}, ErrValidation
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return model.Comment{}, ErrPostNotFound
	}

	comment := model.Comment{
		ID:           uuid.NewString(),
		PostID:       postID,
		UserID:       author.ID,
		UserName:     author.Name,
		UserPhotoURL: author.PhotoURL,
		Content:      content,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, comment); err != nil {
		return model.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

// ListByPost returns comments oldest first, the order a thread reads in.
func (s *Service) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if postID == "" {
		return nil, ErrValidation
	}
	comments, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// PurgeForPost removes a removed post's thread.
func (s *Service) PurgeForPost(ctx context.Context, postID string) error {
	if postID == "" {
		return ErrValidation
	}
	if err := s.store.DeleteByPost(ctx, postID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
