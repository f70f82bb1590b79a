package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Insert(ctx context.Context, comment model.Comment) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO comments (id, post_id, user_id, user_name, user_photo_url, content, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, comment.ID, comment.PostID, comment.UserID, comment.UserName,
		comment.UserPhotoURL, comment.Content, comment.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, post_id, user_id, user_name, user_photo_url, content, created_at_ms
FROM comments
WHERE post_id = $1
ORDER BY created_at_ms ASC
`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		var (
			comment   model.Comment
			createdMs int64
		)
		if err := rows.Scan(
			&comment.ID, &comment.PostID, &comment.UserID, &comment.UserName,
			&comment.UserPhotoURL, &comment.Content, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comment.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

func (r *CommentRepo) DeleteByPost(ctx context.Context, postID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM comments
WHERE post_id = $1
`, postID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
