package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
	"github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
)

const (
	MinRadiusKM = 0
	MaxRadiusKM = 50
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrValidation   = errors.New("invalid user input")
	ErrRoleChange   = errors.New("role change not permitted")
	DefaultRadiusKM = 5.0
)

type Store interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error)
	Upsert(ctx context.Context, user model.User) (model.User, error)
	UpdatePreferences(ctx context.Context, userID int64, prefs model.NotificationPreferences) error
	UpdateRole(ctx context.Context, userID int64, role enums.Role) error
	ListNotifiable(ctx context.Context) ([]model.User, error)
}

type Service struct {
	store      Store
	founderTID int64
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(store Store, founderTelegramID int64, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("users store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		founderTID: founderTelegramID,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// UpsertFromTelegram registers a Telegram identity on first contact and
// refreshes profile fields on subsequent logins. Role is never downgraded
// here; the configured founder id gets the founder role on first sight.
func (s *Service) UpsertFromTelegram(ctx context.Context, profile auth.TelegramProfile) (model.User, error) {
	if profile.ID <= 0 {
		return model.User{}, fmt.Errorf("telegram id must be positive: %w", ErrValidation)
	}

	now := s.now().UTC()
	user := model.User{
		TelegramID: profile.ID,
		Name:       displayName(profile),
		Username:   profile.Username,
		PhotoURL:   profile.PhotoURL,
		Role:       enums.RoleUser,
		Preferences: model.NotificationPreferences{
			Enabled:  true,
			RadiusKM: DefaultRadiusKM,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.founderTID != 0 && profile.ID == s.founderTID {
		user.Role = enums.RoleFounder
	}

	existing, err := s.store.GetByTelegramID(ctx, profile.ID)
	switch {
	case err == nil:
		user.ID = existing.ID
		user.Role = existing.Role
		user.Preferences = existing.Preferences
		user.CreatedAt = existing.CreatedAt
		if s.founderTID != 0 && profile.ID == s.founderTID && !existing.Role.AtLeast(enums.RoleFounder) {
			user.Role = enums.RoleFounder
		}
	case errors.Is(err, ErrNotFound):
	default:
		return model.User{}, fmt.Errorf("get user by telegram id: %w", err)
	}

	saved, err := s.store.Upsert(ctx, user)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.User, error) {
	if id <= 0 {
		return model.User{}, ErrValidation
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	if telegramID <= 0 {
		return model.User{}, ErrValidation
	}
	return s.store.GetByTelegramID(ctx, telegramID)
}

// UpdatePreferences validates and persists notification settings.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, prefs model.NotificationPreferences) error {
	if userID <= 0 {
		return ErrValidation
	}
	if prefs.RadiusKM < MinRadiusKM || prefs.RadiusKM > MaxRadiusKM {
		return fmt.Errorf("radius %.1f km out of range: %w", prefs.RadiusKM, ErrValidation)
	}
	if _, err := rules.ParseQuietWindow(prefs.QuietStart, prefs.QuietEnd); err != nil {
		return fmt.Errorf("quiet hours: %w", ErrValidation)
	}
	for category := range prefs.Categories {
		if parsed := enums.ParsePostCategory(string(category)); parsed != category {
			return fmt.Errorf("unknown category %q: %w", category, ErrValidation)
		}
	}

	if err := s.store.UpdatePreferences(ctx, userID, prefs); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}

// SetRole changes a user's role. Admins manage moderators; only the
// founder can mint admins, and the founder role itself is not assignable.
func (s *Service) SetRole(ctx context.Context, actor model.User, targetID int64, role enums.Role) error {
	if targetID <= 0 {
		return ErrValidation
	}
	if role == enums.RoleFounder {
		return ErrRoleChange
	}

	target, err := s.store.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("get target user: %w", err)
	}
	if target.Role == enums.RoleFounder {
		return ErrRoleChange
	}

	required := enums.RoleAdmin
	if role == enums.RoleAdmin {
		required = enums.RoleFounder
	}
	if !actor.Role.AtLeast(required) {
		return ErrRoleChange
	}

	if err := s.store.UpdateRole(ctx, targetID, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	s.logger.Info("role changed",
		zap.Int64("actor_id", actor.ID),
		zap.Int64("target_id", targetID),
		zap.String("role", string(role)))
	return nil
}

// ListNotifiable feeds the proximity alert fan-out.
func (s *Service) ListNotifiable(ctx context.Context) ([]model.User, error) {
	return s.store.ListNotifiable(ctx)
}

func displayName(profile auth.TelegramProfile) string {
	name := strings.TrimSpace(strings.TrimSpace(profile.FirstName) + " " + strings.TrimSpace(profile.LastName))
	if name != "" {
		return name
	}
	if profile.Username != "" {
		return profile.Username
	}
	return fmt.Sprintf("user%d", profile.ID)
}
