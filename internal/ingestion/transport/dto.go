// Package transport defines the wire shape of a normalized ingestion batch.
// Platform adapters deliver events already normalized to this format;
// validation happens once here, at the boundary.
package transport

import (
	"time"

	"engage_backend/internal/attribution"
	catalogrepo "engage_backend/internal/catalog/repository"
	"engage_backend/internal/ingestion/service"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/apperr"

	"github.com/google/uuid"
)

// PostPayload is one post in a batch.
type PostPayload struct {
	ExternalID    string     `json:"externalId" validate:"required"`
	Platform      string     `json:"platform" validate:"required,oneof=INSTAGRAM FACEBOOK WHATSAPP TIKTOK"`
	URL           string     `json:"url,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	Caption       string     `json:"caption,omitempty"`
	Likes         int        `json:"likes" validate:"min=0"`
	Shares        int        `json:"shares" validate:"min=0"`
	CommentsCount int        `json:"commentsCount" validate:"min=0"`
	PostedAt      *time.Time `json:"postedAt,omitempty"`
}

// SenderPayload identifies the platform account behind an event.
type SenderPayload struct {
	Username       string `json:"username,omitempty"`
	PlatformUserID string `json:"platformUserId,omitempty"`
	Phone          string `json:"phone,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
}

// ReferralPayload is structured referral data from the platform event.
type ReferralPayload struct {
	AdID          string `json:"adId,omitempty"`
	RefCode       string `json:"refCode,omitempty"`
	SourceChannel string `json:"sourceChannel,omitempty"`
}

// EventPayload is one normalized interaction event.
type EventPayload struct {
	ExternalID     string           `json:"externalId" validate:"required"`
	Platform       string           `json:"platform" validate:"required,oneof=INSTAGRAM FACEBOOK WHATSAPP TIKTOK"`
	Type           string           `json:"type" validate:"required,oneof=COMMENT DM LIKE SHARE STORY_REPLY MENTION"`
	Verb           string           `json:"verb" validate:"omitempty,oneof=add edit remove"`
	Text           string           `json:"text,omitempty"`
	MediaURLs      []string         `json:"mediaUrls,omitempty" validate:"omitempty,dive,url"`
	Sender         SenderPayload    `json:"sender"`
	PostExternalID string           `json:"postExternalId,omitempty"`
	PostReference  string           `json:"postReference,omitempty"`
	Referral       *ReferralPayload `json:"referral,omitempty"`
	OccurredAt     time.Time        `json:"occurredAt" validate:"required"`
}

// IngestBatchRequest is the body of a webhook ingest call and the payload of
// an ingestion job.
type IngestBatchRequest struct {
	TenantID           string         `json:"tenantId" validate:"required,uuid"`
	ConnectedAccountID string         `json:"connectedAccountId,omitempty" validate:"omitempty,uuid"`
	Posts              []PostPayload  `json:"posts" validate:"dive"`
	Events             []EventPayload `json:"events" validate:"dive"`
}

// ToBatch converts a validated request into the service batch. An omitted
// verb means add.
func ToBatch(req IngestBatchRequest) (service.Batch, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return service.Batch{}, apperr.Validation("invalid tenant id")
	}

	batch := service.Batch{TenantID: tenantID}

	if req.ConnectedAccountID != "" {
		accountID, err := uuid.Parse(req.ConnectedAccountID)
		if err != nil {
			return service.Batch{}, apperr.Validation("invalid connected account id")
		}
		batch.ConnectedAccountID = &accountID
	}

	batch.Posts = make([]catalogrepo.PostUpsert, 0, len(req.Posts))
	for _, post := range req.Posts {
		batch.Posts = append(batch.Posts, catalogrepo.PostUpsert{
			ExternalID:    post.ExternalID,
			Platform:      channel.Platform(post.Platform),
			URL:           post.URL,
			ImageURL:      post.ImageURL,
			Caption:       post.Caption,
			Likes:         post.Likes,
			Shares:        post.Shares,
			CommentsCount: post.CommentsCount,
			PostedAt:      post.PostedAt,
		})
	}

	batch.Events = make([]service.EventInput, 0, len(req.Events))
	for _, event := range req.Events {
		verb := channel.Verb(event.Verb)
		if verb == "" {
			verb = channel.VerbAdd
		}

		in := service.EventInput{
			ExternalID: event.ExternalID,
			Platform:   channel.Platform(event.Platform),
			Type:       channel.InteractionType(event.Type),
			Verb:       verb,
			Text:       event.Text,
			MediaURLs:  event.MediaURLs,
			Sender: service.SenderInput{
				Username:       event.Sender.Username,
				PlatformUserID: event.Sender.PlatformUserID,
				Phone:          event.Sender.Phone,
				DisplayName:    event.Sender.DisplayName,
			},
			PostExternalID: event.PostExternalID,
			PostReference:  event.PostReference,
			OccurredAt:     event.OccurredAt,
		}
		if event.Referral != nil {
			in.Referral = &attribution.Referral{
				AdID:          event.Referral.AdID,
				RefCode:       event.Referral.RefCode,
				SourceChannel: event.Referral.SourceChannel,
			}
		}
		batch.Events = append(batch.Events, in)
	}

	return batch, nil
}
