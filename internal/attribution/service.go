// Package attribution determines which post, channel, and offering an
// inbound message is about when the platform supplies no direct post link.
package attribution

import (
	"context"

	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
)

// Method records how an attribution was decided.
type Method string

const (
	MethodDirectLink    Method = "direct_link"
	MethodReferral      Method = "referral"
	MethodPostReference Method = "post_reference"
	MethodContent       Method = "content"
	MethodKeyword       Method = "keyword"
	MethodNone          Method = "none"
)

// Referral is structured referral data supplied by the platform event.
type Referral struct {
	AdID          string
	RefCode       string
	SourceChannel string
}

// Input carries everything the resolver may use, in priority order.
type Input struct {
	PostID        *uuid.UUID // direct post link, already resolved to an internal id
	Referral      *Referral
	PostReference string
	Text          string
}

// Result is the resolver's best current belief about the message's origin.
// Confidence 0 means no attribution; the interaction persists with null
// attribution fields rather than blocking ingestion.
type Result struct {
	Method        Method
	SourceChannel *string
	SourcePostID  *uuid.UUID
	OfferingID    *uuid.UUID
	Confidence    int
}

// Service resolves attributions against the tenant catalog.
type Service struct {
	offerings OfferingSource
	log       *logger.Logger
}

func New(offerings OfferingSource, log *logger.Logger) *Service {
	return &Service{offerings: offerings, log: log}
}

// Resolve applies the attribution priority order, first match wins:
// direct post link, explicit referral, post-reference text match,
// content-based offering match, keyword ILIKE fallback.
func (s *Service) Resolve(ctx context.Context, q db.Querier, tenantID uuid.UUID, in Input) (Result, error) {
	offerings, err := s.offerings.ListOfferings(ctx, q, tenantID)
	if err != nil {
		return Result{}, err
	}

	if in.PostID != nil {
		return s.resolveDirectLink(*in.PostID, offerings), nil
	}

	if in.Referral != nil {
		return resolveReferral(*in.Referral, offerings), nil
	}

	if match, ok := MatchPostReference(in.PostReference, offerings); ok {
		return resultFromMatch(MethodPostReference, match), nil
	}

	if match, ok := MatchOffering(in.Text, offerings); ok {
		return resultFromMatch(MethodContent, match), nil
	}

	keywords := ExtractKeywords(in.Text)
	offering, found, err := s.offerings.SearchByKeywords(ctx, q, tenantID, keywords)
	if err != nil {
		return Result{}, err
	}
	if found {
		return resultFromMatch(MethodKeyword, OfferingMatch{Offering: offering, Confidence: confidenceKeywordSearch}), nil
	}

	return Result{Method: MethodNone, Confidence: 0}, nil
}

// resolveDirectLink short-circuits when an offering is tied to the known post.
func (s *Service) resolveDirectLink(postID uuid.UUID, offerings []Offering) Result {
	result := Result{
		Method:       MethodDirectLink,
		SourcePostID: &postID,
		Confidence:   confidenceDirectLink,
	}
	for _, offering := range offerings {
		if offering.PostID != nil && *offering.PostID == postID {
			id := offering.ID
			result.OfferingID = &id
			break
		}
	}
	return result
}

// resolveReferral trusts structured platform referral data unconditionally.
// A ref code that names an offering keyword also resolves the offering.
func resolveReferral(ref Referral, offerings []Offering) Result {
	result := Result{Method: MethodReferral, Confidence: 100}

	if ref.SourceChannel != "" {
		channel := ref.SourceChannel
		result.SourceChannel = &channel
	}

	if ref.RefCode != "" {
		if match, ok := MatchPostReference(ref.RefCode, offerings); ok {
			id := match.Offering.ID
			result.OfferingID = &id
			if match.Offering.PostID != nil {
				result.SourcePostID = match.Offering.PostID
			}
		}
	}

	return result
}

func resultFromMatch(method Method, match OfferingMatch) Result {
	id := match.Offering.ID
	result := Result{
		Method:     method,
		OfferingID: &id,
		Confidence: match.Confidence,
	}
	if match.Offering.PostID != nil {
		result.SourcePostID = match.Offering.PostID
	}
	return result
}
