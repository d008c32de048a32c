// Package repository persists tenant posts and offerings.
package repository

import (
	"context"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"

	"github.com/google/uuid"
)

// Post is one piece of tenant content on a platform.
type Post struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Platform      channel.Platform
	ExternalID    string
	URL           *string
	ImageURL      *string
	Caption       *string
	Likes         int
	Shares        int
	CommentsCount int
	PostedAt      *time.Time
	SyncedAt      time.Time
}

// PostUpsert is the normalized shape the ingestion batch carries for a post.
type PostUpsert struct {
	ExternalID    string
	Platform      channel.Platform
	URL           string
	ImageURL      string
	Caption       string
	Likes         int
	Shares        int
	CommentsCount int
	PostedAt      *time.Time
}

// Repository persists posts and offerings. Methods accept a db.Querier so
// they run inside the caller's ingestion transaction.
type Repository struct{}

func New() *Repository {
	return &Repository{}
}

// UpsertPosts inserts or refreshes a batch of posts and returns the
// externalID -> internal id map the interaction upsert uses in the same
// transaction. On conflict only the engagement counters and synced_at move;
// url and caption are treated as immutable once observed. Two concurrent
// ingestions of the same post never error: the second writer's counters win.
// An empty batch is a no-op.
func (r *Repository) UpsertPosts(ctx context.Context, q db.Querier, tenantID uuid.UUID, posts []PostUpsert) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(posts))

	for _, post := range posts {
		var id uuid.UUID
		err := q.QueryRow(ctx, `
			INSERT INTO posts (
				tenant_id, platform, external_id, url, image_url, caption,
				likes, shares, comments_count, posted_at, synced_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, now())
			ON CONFLICT (platform, external_id) DO UPDATE SET
				likes = EXCLUDED.likes,
				shares = EXCLUDED.shares,
				comments_count = EXCLUDED.comments_count,
				synced_at = now()
			RETURNING id
		`,
			tenantID, post.Platform, post.ExternalID, post.URL, post.ImageURL, post.Caption,
			post.Likes, post.Shares, post.CommentsCount, post.PostedAt,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[post.ExternalID] = id
	}

	return ids, nil
}

// SyncOfferingKeywords replaces the keyword set of an offering. Offerings are
// otherwise read-only to the pipeline.
func (r *Repository) SyncOfferingKeywords(ctx context.Context, q db.Querier, tenantID, offeringID uuid.UUID, keywords []string) error {
	_, err := q.Exec(ctx, `
		UPDATE offerings
		SET keywords = $3, updated_at = now()
		WHERE id = $2 AND tenant_id = $1
	`, tenantID, offeringID, keywords)
	return err
}
