// Package service implements cross-channel identity resolution: finding or
// creating the unified customer profile behind a platform-specific sender.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"engage_backend/internal/identity/repository"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/apperr"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"
	"engage_backend/platform/phone"
	"engage_backend/platform/retry"

	"github.com/google/uuid"
)

const (
	// One initial attempt plus two retries on a create race.
	resolveMaxAttempts = 3
	resolveRetryJitter = 25 * time.Millisecond
)

// ResolveInput identifies a platform-specific sender.
// Display name is carried for profile enrichment but never used for matching.
type ResolveInput struct {
	TenantID       uuid.UUID
	Platform       channel.Platform
	Username       string
	PlatformUserID string
	Phone          string
	DisplayName    string
}

// Service resolves senders to customer profiles.
type Service struct {
	store repository.CustomerStore
	log   *logger.Logger
}

func New(store repository.CustomerStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// FindOrCreate returns the customer profile for the given sender, creating
// one lazily on first contact. The boolean result reports whether a new
// profile was created.
//
// Matching uses strong identifiers only; two different humans must never be
// merged, so a failed match (new profile) is always preferred over a fuzzy
// one. A uniqueness violation on create means a concurrent ingestion won the
// same race; the whole find-or-create is retried so both writers converge on
// one row.
func (s *Service) FindOrCreate(ctx context.Context, q db.Querier, in ResolveInput) (repository.Customer, bool, error) {
	in = normalizeInput(in)

	matches := strongMatches(in)
	if len(matches) == 0 {
		return repository.Customer{}, false, apperr.Validation("no strong identifier for sender")
	}

	var (
		resolved repository.Customer
		isNew    bool
	)

	err := retry.WithOptimisticRetry(ctx, resolveMaxAttempts, resolveRetryJitter, func(ctx context.Context) error {
		existing, err := s.store.FindByIdentifiers(ctx, q, in.TenantID, matches)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return retry.Permanent(err)
		}

		if err == nil {
			updates := backfillUpdates(existing, in)
			if !updates.Empty() {
				if err := s.store.UpdateIdentifiers(ctx, q, existing.ID, updates); err != nil {
					return retry.Permanent(err)
				}
			}
			resolved = applyUpdates(existing, updates)
			isNew = false
			return nil
		}

		created, err := s.store.Create(ctx, q, createParams(in))
		if err != nil {
			if db.IsUniqueViolation(err) {
				// Lost the create race; re-run the find.
				return err
			}
			return retry.Permanent(err)
		}

		resolved = created
		isNew = true
		return nil
	})
	if err != nil {
		return repository.Customer{}, false, err
	}

	return resolved, isNew, nil
}

// RecordInteraction bumps the profile's interaction counters. Invoked once
// per processed event, including edits.
func (s *Service) RecordInteraction(ctx context.Context, q db.Querier, customerID uuid.UUID, intent *string) error {
	return s.store.RecordInteraction(ctx, q, customerID, intent)
}

func normalizeInput(in ResolveInput) ResolveInput {
	in.Username = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(in.Username), "@"))
	in.PlatformUserID = strings.TrimSpace(in.PlatformUserID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Phone != "" {
		in.Phone = phone.NormalizeE164(in.Phone)
	}
	return in
}

// strongMatches builds the disjunctive match condition from whichever strong
// identifiers are present for the platform. Instagram additionally matches on
// username for legacy backfill rows that predate stable user ids.
func strongMatches(in ResolveInput) []repository.IdentifierMatch {
	var matches []repository.IdentifierMatch

	switch in.Platform {
	case channel.PlatformInstagram:
		if in.PlatformUserID != "" {
			matches = append(matches, repository.IdentifierMatch{Field: repository.FieldInstagramUserID, Value: in.PlatformUserID})
		}
		if in.Username != "" {
			matches = append(matches, repository.IdentifierMatch{Field: repository.FieldInstagramUsername, Value: in.Username})
		}
	case channel.PlatformFacebook:
		if in.PlatformUserID != "" {
			matches = append(matches, repository.IdentifierMatch{Field: repository.FieldFacebookUserID, Value: in.PlatformUserID})
		}
	case channel.PlatformWhatsApp:
		if in.Phone != "" {
			matches = append(matches, repository.IdentifierMatch{Field: repository.FieldWhatsAppPhone, Value: in.Phone})
		}
	case channel.PlatformTikTok:
		if in.Username != "" {
			matches = append(matches, repository.IdentifierMatch{Field: repository.FieldTikTokUsername, Value: in.Username})
		}
	}

	return matches
}

// backfillUpdates computes the identifier fields to learn or self-heal on an
// existing profile: a newly seen stable id is backfilled, a changed platform
// handle is refreshed. Nothing is persisted when the profile already agrees.
func backfillUpdates(existing repository.Customer, in ResolveInput) repository.IdentifierUpdates {
	var updates repository.IdentifierUpdates

	switch in.Platform {
	case channel.PlatformInstagram:
		if in.PlatformUserID != "" && (existing.InstagramUserID == nil || *existing.InstagramUserID != in.PlatformUserID) {
			updates.InstagramUserID = &in.PlatformUserID
		}
		if in.Username != "" && (existing.InstagramUsername == nil || *existing.InstagramUsername != in.Username) {
			updates.InstagramUsername = &in.Username
		}
	case channel.PlatformFacebook:
		if in.PlatformUserID != "" && existing.FacebookUserID == nil {
			updates.FacebookUserID = &in.PlatformUserID
		}
	case channel.PlatformWhatsApp:
		if in.Phone != "" && existing.WhatsAppPhone == nil {
			updates.WhatsAppPhone = &in.Phone
		}
	case channel.PlatformTikTok:
		if in.Username != "" && (existing.TikTokUsername == nil || *existing.TikTokUsername != in.Username) {
			updates.TikTokUsername = &in.Username
		}
	}

	if in.DisplayName != "" && (existing.DisplayName == nil || *existing.DisplayName == "") {
		updates.DisplayName = &in.DisplayName
	}

	return updates
}

func applyUpdates(c repository.Customer, updates repository.IdentifierUpdates) repository.Customer {
	if updates.InstagramUserID != nil {
		c.InstagramUserID = updates.InstagramUserID
	}
	if updates.InstagramUsername != nil {
		c.InstagramUsername = updates.InstagramUsername
	}
	if updates.FacebookUserID != nil {
		c.FacebookUserID = updates.FacebookUserID
	}
	if updates.WhatsAppPhone != nil {
		c.WhatsAppPhone = updates.WhatsAppPhone
	}
	if updates.TikTokUsername != nil {
		c.TikTokUsername = updates.TikTokUsername
	}
	if updates.DisplayName != nil {
		c.DisplayName = updates.DisplayName
	}
	return c
}

func createParams(in ResolveInput) repository.CreateCustomerParams {
	params := repository.CreateCustomerParams{TenantID: in.TenantID}

	optional := func(value string) *string {
		if value == "" {
			return nil
		}
		return &value
	}

	switch in.Platform {
	case channel.PlatformInstagram:
		params.InstagramUserID = optional(in.PlatformUserID)
		params.InstagramUsername = optional(in.Username)
	case channel.PlatformFacebook:
		params.FacebookUserID = optional(in.PlatformUserID)
	case channel.PlatformWhatsApp:
		params.WhatsAppPhone = optional(in.Phone)
	case channel.PlatformTikTok:
		params.TikTokUsername = optional(in.Username)
	}

	params.DisplayName = optional(in.DisplayName)
	return params
}
