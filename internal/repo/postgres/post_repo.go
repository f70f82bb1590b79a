package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
)

// PostRepo persists incident reports. Timestamps are stored as epoch
// milliseconds to match the wire format the map client uses.
type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `id, description, latitude, longitude, address, category, severity, status, user_id, user_name, photo_key, likes, created_at_ms, expires_at_ms`

func (r *PostRepo) Insert(ctx context.Context, post model.Post) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`,
		post.ID, post.Description, post.Latitude, post.Longitude, post.Address,
		string(post.Category), string(post.Severity), string(post.Status),
		post.UserID, post.UserName, post.PhotoKey, post.Likes,
		post.CreatedAt.UnixMilli(), post.ExpiresAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) Get(ctx context.Context, id string) (model.Post, error) {
	if r.pool == nil {
		return model.Post{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE id = $1
`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, posts.ErrNotFound
		}
		return model.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (r *PostRepo) ListActive(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE status = $1 AND expires_at_ms > $2
ORDER BY created_at_ms DESC, id DESC
LIMIT $3
`, string(enums.ModerationStatusApproved), now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("list active posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *PostRepo) ListByStatus(ctx context.Context, status enums.ModerationStatus, limit int) ([]model.Post, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE status = $1
ORDER BY created_at_ms DESC, id DESC
LIMIT $2
`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list posts by status: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *PostRepo) Update(ctx context.Context, post model.Post) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE posts
SET description = $2, latitude = $3, longitude = $4, address = $5,
	category = $6, severity = $7, status = $8, photo_key = $9,
	likes = $10, expires_at_ms = $11
WHERE id = $1
`,
		post.ID, post.Description, post.Latitude, post.Longitude, post.Address,
		string(post.Category), string(post.Severity), string(post.Status),
		post.PhotoKey, post.Likes, post.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return posts.ErrNotFound
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM posts
WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return posts.ErrNotFound
	}
	return nil
}

func (r *PostRepo) Exists(ctx context.Context, id string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)
`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// DeleteExpiredBefore purges posts whose expiry fell behind the retention
// cutoff. The cleanup job calls this on a timer.
func (r *PostRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM posts
WHERE expires_at_ms < $1
`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountRecentNearby feeds the moderation context factor: how many other
// reports landed inside the radius within the window. The bounding box
// keeps the query on the lat/lon index; 1 degree is ~111 km.
func (r *PostRepo) CountRecentNearby(ctx context.Context, lat, lon, radiusKM float64, since time.Time) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	delta := radiusKM / 111.0
	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM posts
WHERE created_at_ms >= $1
  AND latitude BETWEEN $2 AND $3
  AND longitude BETWEEN $4 AND $5
`, since.UnixMilli(), lat-delta, lat+delta, lon-delta, lon+delta).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent nearby posts: %w", err)
	}
	return count, nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var (
		post                       model.Post
		category, severity, status string
		createdMs, expiresMs       int64
	)
	if err := row.Scan(
		&post.ID, &post.Description, &post.Latitude, &post.Longitude, &post.Address,
		&category, &severity, &status, &post.UserID, &post.UserName,
		&post.PhotoKey, &post.Likes, &createdMs, &expiresMs,
	); err != nil {
		return model.Post{}, err
	}
	post.Category = enums.PostCategory(category)
	post.Severity = enums.Severity(severity)
	post.Status = enums.ModerationStatus(status)
	post.CreatedAt = time.UnixMilli(createdMs).UTC()
	post.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return post, nil
}

func collectPosts(rows pgx.Rows) ([]model.Post, error) {
	out := make([]model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}
