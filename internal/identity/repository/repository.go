package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"engage_backend/internal/shared/channel"
	"engage_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("customer not found")

// Customer is the unified cross-channel profile for one real person.
type Customer struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	InstagramUserID   *string
	InstagramUsername *string
	FacebookUserID    *string
	WhatsAppPhone     *string
	TikTokUsername    *string
	DisplayName       *string
	TotalLeadScore    int
	Status            channel.CustomerStatus
	TotalInteractions int
	LastInteractionAt *time.Time
	LastIntent        *string
	Tags              []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IdentifierField names a strong-identifier column.
type IdentifierField string

const (
	FieldInstagramUserID   IdentifierField = "instagram_user_id"
	FieldInstagramUsername IdentifierField = "instagram_username"
	FieldFacebookUserID    IdentifierField = "facebook_user_id"
	FieldWhatsAppPhone     IdentifierField = "whatsapp_phone"
	FieldTikTokUsername    IdentifierField = "tiktok_username"
)

// IdentifierMatch is one disjunct of the strong-identifier match condition.
type IdentifierMatch struct {
	Field IdentifierField
	Value string
}

// CreateCustomerParams holds the single known identifier set for a new profile.
type CreateCustomerParams struct {
	TenantID          uuid.UUID
	InstagramUserID   *string
	InstagramUsername *string
	FacebookUserID    *string
	WhatsAppPhone     *string
	TikTokUsername    *string
	DisplayName       *string
}

// IdentifierUpdates carries backfilled identifiers; nil fields are untouched.
type IdentifierUpdates struct {
	InstagramUserID   *string
	InstagramUsername *string
	FacebookUserID    *string
	WhatsAppPhone     *string
	TikTokUsername    *string
	DisplayName       *string
}

// Empty reports whether there is nothing to persist.
func (u IdentifierUpdates) Empty() bool {
	return u.InstagramUserID == nil && u.InstagramUsername == nil &&
		u.FacebookUserID == nil && u.WhatsAppPhone == nil &&
		u.TikTokUsername == nil && u.DisplayName == nil
}

// Repository persists customers in Postgres. Methods accept a db.Querier so
// they run inside the caller's ingestion transaction.
type Repository struct{}

func New() *Repository {
	return &Repository{}
}

const customerColumns = `id, tenant_id, instagram_user_id, instagram_username, facebook_user_id,
	whatsapp_phone, tiktok_username, display_name, total_lead_score, status,
	total_interactions, last_interaction_at, last_intent, tags, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.TenantID, &c.InstagramUserID, &c.InstagramUsername, &c.FacebookUserID,
		&c.WhatsAppPhone, &c.TikTokUsername, &c.DisplayName, &c.TotalLeadScore, &c.Status,
		&c.TotalInteractions, &c.LastInteractionAt, &c.LastIntent, &c.Tags, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *Repository) FindByIdentifiers(ctx context.Context, q db.Querier, tenantID uuid.UUID, matches []IdentifierMatch) (Customer, error) {
	if len(matches) == 0 {
		return Customer{}, ErrNotFound
	}

	conditions := make([]string, 0, len(matches))
	args := []any{tenantID}
	for _, m := range matches {
		args = append(args, m.Value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", m.Field, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		WHERE tenant_id = $1 AND (%s)
		ORDER BY created_at ASC
		LIMIT 1
	`, customerColumns, strings.Join(conditions, " OR "))

	customer, err := scanCustomer(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return customer, err
}

func (r *Repository) Create(ctx context.Context, q db.Querier, params CreateCustomerParams) (Customer, error) {
	query := fmt.Sprintf(`
		INSERT INTO customers (
			tenant_id, instagram_user_id, instagram_username, facebook_user_id,
			whatsapp_phone, tiktok_username, display_name, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'COLD')
		RETURNING %s
	`, customerColumns)

	return scanCustomer(q.QueryRow(ctx, query,
		params.TenantID, params.InstagramUserID, params.InstagramUsername, params.FacebookUserID,
		params.WhatsAppPhone, params.TikTokUsername, params.DisplayName,
	))
}

func (r *Repository) UpdateIdentifiers(ctx context.Context, q db.Querier, id uuid.UUID, updates IdentifierUpdates) error {
	if updates.Empty() {
		return nil
	}

	sets := make([]string, 0, 6)
	args := []any{id}
	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	appendSet("instagram_user_id", updates.InstagramUserID)
	appendSet("instagram_username", updates.InstagramUsername)
	appendSet("facebook_user_id", updates.FacebookUserID)
	appendSet("whatsapp_phone", updates.WhatsAppPhone)
	appendSet("tiktok_username", updates.TikTokUsername)
	appendSet("display_name", updates.DisplayName)

	query := fmt.Sprintf(`
		UPDATE customers
		SET %s, updated_at = now()
		WHERE id = $1
	`, strings.Join(sets, ", "))

	_, err := q.Exec(ctx, query, args...)
	return err
}

func (r *Repository) RecordInteraction(ctx context.Context, q db.Querier, customerID uuid.UUID, intent *string) error {
	_, err := q.Exec(ctx, `
		UPDATE customers
		SET total_interactions = total_interactions + 1,
			last_interaction_at = now(),
			last_intent = COALESCE($2, last_intent),
			updated_at = now()
		WHERE id = $1
	`, customerID, intent)
	return err
}

var _ CustomerStore = (*Repository)(nil)
