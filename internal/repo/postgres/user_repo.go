package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/services/users"
)

// UserRepo persists Telegram identities. Notification preferences live in
// a jsonb column since their shape changes with the client.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, telegram_id, name, username, photo_url, role, preferences, created_at, updated_at`

func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_id = $1
`, telegramID)
	return scanUser(row)
}

func (r *UserRepo) Upsert(ctx context.Context, user model.User) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return model.User{}, fmt.Errorf("encode preferences: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, name, username, photo_url, role, preferences, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
	name = EXCLUDED.name,
	username = EXCLUDED.username,
	photo_url = EXCLUDED.photo_url,
	role = EXCLUDED.role,
	updated_at = NOW()
RETURNING `+userColumns+`
`, user.TelegramID, user.Name, user.Username, user.PhotoURL, string(user.Role), prefs)
	saved, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return saved, nil
}

func (r *UserRepo) UpdatePreferences(ctx context.Context, userID int64, prefs model.NotificationPreferences) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	encoded, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET preferences = $2, updated_at = NOW()
WHERE id = $1
`, userID, encoded)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, userID int64, role enums.Role) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET role = $2, updated_at = NOW()
WHERE id = $1
`, userID, string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ListNotifiable(ctx context.Context) ([]model.User, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE (preferences->>'enabled')::boolean = true
`)
	if err != nil {
		return nil, fmt.Errorf("list notifiable users: %w", err)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		user  model.User
		role  string
		prefs []byte
	)
	if err := row.Scan(
		&user.ID, &user.TelegramID, &user.Name, &user.Username, &user.PhotoURL,
		&role, &prefs, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, users.ErrNotFound
		}
		return model.User{}, err
	}
	user.Role = enums.ParseRole(role)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
			return model.User{}, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return user, nil
}
