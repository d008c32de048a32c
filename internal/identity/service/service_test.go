package service

import (
	"context"
	"testing"

	"engage_backend/internal/identity/repository"
	"engage_backend/internal/shared/channel"
	"engage_backend/platform/apperr"
	"engage_backend/platform/db"
	"engage_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeCustomerStore struct {
	customers []repository.Customer

	createCalls  int
	createErrs   []error
	updateCalls  []repository.IdentifierUpdates
	recordCalls  int
	recordIntent *string
}

func (f *fakeCustomerStore) FindByIdentifiers(ctx context.Context, q db.Querier, tenantID uuid.UUID, matches []repository.IdentifierMatch) (repository.Customer, error) {
	for _, c := range f.customers {
		if c.TenantID != tenantID {
			continue
		}
		for _, m := range matches {
			if matchesCustomer(c, m) {
				return c, nil
			}
		}
	}
	return repository.Customer{}, repository.ErrNotFound
}

func matchesCustomer(c repository.Customer, m repository.IdentifierMatch) bool {
	field := func(v *string) bool { return v != nil && *v == m.Value }
	switch m.Field {
	case repository.FieldInstagramUserID:
		return field(c.InstagramUserID)
	case repository.FieldInstagramUsername:
		return field(c.InstagramUsername)
	case repository.FieldFacebookUserID:
		return field(c.FacebookUserID)
	case repository.FieldWhatsAppPhone:
		return field(c.WhatsAppPhone)
	case repository.FieldTikTokUsername:
		return field(c.TikTokUsername)
	}
	return false
}

func (f *fakeCustomerStore) Create(ctx context.Context, q db.Querier, params repository.CreateCustomerParams) (repository.Customer, error) {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return repository.Customer{}, err
		}
	}

	created := repository.Customer{
		ID:                uuid.New(),
		TenantID:          params.TenantID,
		InstagramUserID:   params.InstagramUserID,
		InstagramUsername: params.InstagramUsername,
		FacebookUserID:    params.FacebookUserID,
		WhatsAppPhone:     params.WhatsAppPhone,
		TikTokUsername:    params.TikTokUsername,
		DisplayName:       params.DisplayName,
		Status:            channel.StatusCold,
	}
	f.customers = append(f.customers, created)
	return created, nil
}

func (f *fakeCustomerStore) UpdateIdentifiers(ctx context.Context, q db.Querier, id uuid.UUID, updates repository.IdentifierUpdates) error {
	f.updateCalls = append(f.updateCalls, updates)
	return nil
}

func (f *fakeCustomerStore) RecordInteraction(ctx context.Context, q db.Querier, customerID uuid.UUID, intent *string) error {
	f.recordCalls++
	f.recordIntent = intent
	return nil
}

func strPtr(s string) *string { return &s }

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func TestFindOrCreateCreatesOnFirstContact(t *testing.T) {
	store := &fakeCustomerStore{}
	svc := New(store, logger.New("development"))
	tenantID := uuid.New()

	customer, isNew, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID:       tenantID,
		Platform:       channel.PlatformInstagram,
		Username:       "@fashionista",
		PlatformUserID: "ig-123",
		DisplayName:    "Fashionista",
	})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if !isNew {
		t.Fatal("expected a new profile")
	}
	if customer.InstagramUsername == nil || *customer.InstagramUsername != "fashionista" {
		t.Fatalf("expected @-prefix stripped, got %v", customer.InstagramUsername)
	}
}

func TestFindOrCreateMatchesByStableID(t *testing.T) {
	tenantID := uuid.New()
	existing := repository.Customer{
		ID:              uuid.New(),
		TenantID:        tenantID,
		InstagramUserID: strPtr("ig-123"),
	}
	store := &fakeCustomerStore{customers: []repository.Customer{existing}}
	svc := New(store, logger.New("development"))

	customer, isNew, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID:       tenantID,
		Platform:       channel.PlatformInstagram,
		PlatformUserID: "ig-123",
		Username:       "renamed_handle",
	})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if isNew {
		t.Fatal("expected the existing profile")
	}
	if customer.ID != existing.ID {
		t.Fatal("resolved wrong customer")
	}
	// The changed handle self-heals on the existing row.
	if len(store.updateCalls) != 1 || store.updateCalls[0].InstagramUsername == nil {
		t.Fatal("expected username backfill update")
	}
}

func TestFindOrCreateNeverMatchesDisplayName(t *testing.T) {
	tenantID := uuid.New()
	existing := repository.Customer{
		ID:              uuid.New(),
		TenantID:        tenantID,
		InstagramUserID: strPtr("ig-123"),
		DisplayName:     strPtr("Anna Sharma"),
	}
	store := &fakeCustomerStore{customers: []repository.Customer{existing}}
	svc := New(store, logger.New("development"))

	// Same display name, different platform identity: must be a new person.
	customer, isNew, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID:       tenantID,
		Platform:       channel.PlatformInstagram,
		PlatformUserID: "ig-999",
		DisplayName:    "Anna Sharma",
	})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if !isNew {
		t.Fatal("display name alone must never merge profiles")
	}
	if customer.ID == existing.ID {
		t.Fatal("merged two different people")
	}
}

func TestFindOrCreateWhatsAppNormalizesPhone(t *testing.T) {
	tenantID := uuid.New()
	existing := repository.Customer{
		ID:            uuid.New(),
		TenantID:      tenantID,
		WhatsAppPhone: strPtr("+9779812345678"),
	}
	store := &fakeCustomerStore{customers: []repository.Customer{existing}}
	svc := New(store, logger.New("development"))

	_, isNew, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID: tenantID,
		Platform: channel.PlatformWhatsApp,
		Phone:    "9812345678",
	})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if isNew {
		t.Fatal("expected national-format number to match the stored E.164 profile")
	}
}

func TestFindOrCreateRequiresStrongIdentifier(t *testing.T) {
	store := &fakeCustomerStore{}
	svc := New(store, logger.New("development"))

	_, _, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID:    uuid.New(),
		Platform:    channel.PlatformInstagram,
		DisplayName: "Somebody",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatal("must not create a profile without a strong identifier")
	}
}

func TestFindOrCreateRetriesLostRace(t *testing.T) {
	tenantID := uuid.New()
	store := &fakeCustomerStore{createErrs: []error{uniqueViolation()}}
	svc := New(store, logger.New("development"))

	// First attempt: find misses, create loses the race. The fake then gains
	// the winner's row so the retry's find succeeds.
	winner := repository.Customer{ID: uuid.New(), TenantID: tenantID, TikTokUsername: strPtr("dancer")}
	store.customers = append(store.customers, winner)

	customer, isNew, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID: tenantID,
		Platform: channel.PlatformTikTok,
		Username: "dancer",
	})
	if err != nil {
		t.Fatalf("FindOrCreate returned error: %v", err)
	}
	if isNew {
		t.Fatal("expected convergence on the winner's row")
	}
	if customer.ID != winner.ID {
		t.Fatal("resolved wrong customer after retry")
	}
}

func TestFindOrCreateRetriesExhausted(t *testing.T) {
	store := &fakeCustomerStore{createErrs: []error{uniqueViolation(), uniqueViolation(), uniqueViolation()}}
	svc := New(store, logger.New("development"))

	// Create keeps losing the race and the find never sees the winner:
	// pathological, but the loop must terminate after three attempts.
	_, _, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID: uuid.New(),
		Platform: channel.PlatformTikTok,
		Username: "dancer",
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if store.createCalls != 3 {
		t.Fatalf("expected 3 create attempts, got %d", store.createCalls)
	}
}

func TestFindOrCreateFacebookUsernameIsNotStrong(t *testing.T) {
	store := &fakeCustomerStore{}
	svc := New(store, logger.New("development"))

	_, _, err := svc.FindOrCreate(context.Background(), nil, ResolveInput{
		TenantID: uuid.New(),
		Platform: channel.PlatformFacebook,
		Username: "some.profile",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatal("facebook without a user id has no strong identifier, create must not run")
	}
}

func TestRecordInteractionPassesThrough(t *testing.T) {
	store := &fakeCustomerStore{}
	svc := New(store, logger.New("development"))

	intent := "inquiry"
	if err := svc.RecordInteraction(context.Background(), nil, uuid.New(), &intent); err != nil {
		t.Fatalf("RecordInteraction returned error: %v", err)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected one record call, got %d", store.recordCalls)
	}
	if store.recordIntent == nil || *store.recordIntent != "inquiry" {
		t.Fatal("intent not passed through")
	}
}
