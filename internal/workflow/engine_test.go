package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"skyview/api/internal/models"
	"skyview/api/internal/store"
)

func newTestEngine() (*Engine, *store.Memory) {
	records := store.NewMemory()
	engine := NewEngine(records, zerolog.Nop())
	return engine, records
}

func seedAccount(t *testing.T, records *store.Memory, account models.UserAccount) string {
	t.Helper()
	id, err := records.Create(context.Background(), models.CollectionUsers, account)
	require.NoError(t, err)
	return id
}

func accountByUID(t *testing.T, records *store.Memory, uid string) models.UserAccount {
	t.Helper()
	docs, err := records.QueryWhere(context.Background(), models.CollectionUsers, store.Where("uid", uid))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var account models.UserAccount
	require.NoError(t, docs[0].Decode(&account))
	account.ID = docs[0].ID
	return account
}

var testApartment = models.Apartment{
	Floor:       3,
	Block:       "B",
	ApartmentNo: 305,
	Rent:        1800,
}

func TestSubmitRequestRefusesAdmin(t *testing.T) {
	engine, _ := newTestEngine()

	admin := models.UserAccount{UID: "u-admin", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}
	_, err := engine.SubmitRequest(context.Background(), admin, testApartment)
	require.ErrorIs(t, err, ErrPermission)

	pending, err := engine.ListPending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSubmitRequestCopiesApartmentSnapshot(t *testing.T) {
	engine, _ := newTestEngine()

	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}
	request, err := engine.SubmitRequest(context.Background(), user, testApartment)
	require.NoError(t, err)

	require.NotEmpty(t, request.ID)
	require.Equal(t, "u1", request.UserID)
	require.Equal(t, "Bo", request.UserName)
	require.Equal(t, "bo@example.com", request.UserEmail)
	require.Equal(t, 3, request.Floor)
	require.Equal(t, "B", request.Block)
	require.Equal(t, 305, request.ApartmentNo)
	require.Equal(t, float64(1800), request.Rent)
	require.Equal(t, models.AgreementStatusPending, request.Status)
	require.False(t, request.RequestDate.IsZero())
}

func TestSubmitRequestRejectsDuplicatePending(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}
	_, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)

	other := models.Apartment{Floor: 1, Block: "A", ApartmentNo: 101, Rent: 1500}
	_, err = engine.SubmitRequest(ctx, user, other)
	require.ErrorIs(t, err, ErrDuplicateRequest, "one pending request per user regardless of apartment")
}

func TestSubmitRequestAllowedAfterDecision(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "bo@example.com", Role: models.RoleUser})
	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}

	first, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)
	require.NoError(t, engine.Decide(ctx, first.ID, models.DecisionReject))

	_, err = engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err, "a decided request no longer blocks resubmission")
}

func TestDecideAcceptPromotesAccount(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	decidedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return decidedAt }

	seedAccount(t, records, models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser})
	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}

	request, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)

	require.NoError(t, engine.Decide(ctx, request.ID, models.DecisionAccept))

	account := accountByUID(t, records, "u1")
	require.Equal(t, models.RoleMember, account.Role)
	require.NotNil(t, account.AgreementDate)
	require.True(t, account.AgreementDate.Equal(decidedAt))
	require.NotNil(t, account.RentedApartment)
	require.Equal(t, 3, account.RentedApartment.Floor)
	require.Equal(t, "B", account.RentedApartment.Block)
	require.Equal(t, 305, account.RentedApartment.ApartmentNo)
	require.Equal(t, float64(1800), account.RentedApartment.Rent)

	pending, err := engine.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDecideRejectLeavesAccountUntouched(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "bo@example.com", Role: models.RoleUser})
	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}

	request, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)
	require.NoError(t, engine.Decide(ctx, request.ID, models.DecisionReject))

	account := accountByUID(t, records, "u1")
	require.Equal(t, models.RoleUser, account.Role)
	require.Nil(t, account.RentedApartment)
	require.Nil(t, account.AgreementDate)

	pending, err := engine.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending, "rejected request leaves the pending queue")
}

func TestDecideTwiceFails(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "bo@example.com", Role: models.RoleUser})
	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}

	request, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)
	require.NoError(t, engine.Decide(ctx, request.ID, models.DecisionReject))

	err = engine.Decide(ctx, request.ID, models.DecisionAccept)
	require.ErrorIs(t, err, ErrInvalidState)

	account := accountByUID(t, records, "u1")
	require.Equal(t, models.RoleUser, account.Role, "second decision has no side effects")
}

func TestDecideUnknownRequest(t *testing.T) {
	engine, _ := newTestEngine()

	err := engine.Decide(context.Background(), "missing", models.DecisionAccept)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDecideAcceptWithoutAccount(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	user := models.UserAccount{UID: "ghost", Name: "Gone", Email: "gone@example.com", Role: models.RoleUser}
	request, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)

	err = engine.Decide(ctx, request.ID, models.DecisionAccept)
	require.ErrorIs(t, err, ErrAccountNotFound)

	// The status commit happened before the account lookup.
	docs, err := records.QueryWhere(ctx, models.CollectionAgreements, store.All())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var stored models.AgreementRequest
	require.NoError(t, docs[0].Decode(&stored))
	require.Equal(t, models.AgreementStatusChecked, stored.Status)
}

// failingStore passes everything through except updates to one
// collection, which fail.
type failingStore struct {
	store.Store
	failCollection string
}

func (f failingStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == f.failCollection {
		return errors.New("write refused")
	}
	return f.Store.Update(ctx, collection, id, fields)
}

func TestDecideAcceptPartialFailure(t *testing.T) {
	records := store.NewMemory()
	engine := NewEngine(failingStore{Store: records, failCollection: models.CollectionUsers}, zerolog.Nop())
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "bo@example.com", Role: models.RoleUser})
	user := models.UserAccount{UID: "u1", Name: "Bo", Email: "bo@example.com", Role: models.RoleUser}

	request, err := engine.SubmitRequest(ctx, user, testApartment)
	require.NoError(t, err)

	err = engine.Decide(ctx, request.ID, models.DecisionAccept)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.True(t, partial.StatusUpdated)
	require.False(t, partial.Promoted)
	require.Equal(t, request.ID, partial.RequestID)
}

func TestOverbookingBothPromoted(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "a@example.com", Role: models.RoleUser})
	seedAccount(t, records, models.UserAccount{UID: "u2", Email: "b@example.com", Role: models.RoleUser})

	first, err := engine.SubmitRequest(ctx, models.UserAccount{UID: "u1", Role: models.RoleUser}, testApartment)
	require.NoError(t, err)
	second, err := engine.SubmitRequest(ctx, models.UserAccount{UID: "u2", Role: models.RoleUser}, testApartment)
	require.NoError(t, err)

	require.NoError(t, engine.Decide(ctx, first.ID, models.DecisionAccept))
	require.NoError(t, engine.Decide(ctx, second.ID, models.DecisionAccept))

	// No exclusivity on apartments: both tenants end up members.
	require.Equal(t, models.RoleMember, accountByUID(t, records, "u1").Role)
	require.Equal(t, models.RoleMember, accountByUID(t, records, "u2").Role)
}

func TestListPendingNewestFirst(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	engine.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	old, err := engine.SubmitRequest(ctx, models.UserAccount{UID: "u1", Role: models.RoleUser}, testApartment)
	require.NoError(t, err)
	recent, err := engine.SubmitRequest(ctx, models.UserAccount{UID: "u2", Role: models.RoleUser}, testApartment)
	require.NoError(t, err)

	pending, err := engine.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, recent.ID, pending[0].ID)
	require.Equal(t, old.ID, pending[1].ID)
}

func TestWatchPendingTracksDecisions(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "bo@example.com", Role: models.RoleUser})

	var last []models.AgreementRequest
	sub, err := engine.WatchPending(ctx, func(pending []models.AgreementRequest) {
		last = pending
	})
	require.NoError(t, err)
	defer sub.Cancel()
	require.Empty(t, last)

	request, err := engine.SubmitRequest(ctx, models.UserAccount{UID: "u1", Role: models.RoleUser}, testApartment)
	require.NoError(t, err)
	require.Len(t, last, 1)

	require.NoError(t, engine.Decide(ctx, request.ID, models.DecisionReject))
	require.Empty(t, last, "decided request drops out of the watched set")
}

func TestListMembersFiltersByRole(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	seedAccount(t, records, models.UserAccount{UID: "u1", Email: "a@example.com", Role: models.RoleUser})
	seedAccount(t, records, models.UserAccount{UID: "u2", Email: "b@example.com", Role: models.RoleMember})
	seedAccount(t, records, models.UserAccount{UID: "u3", Email: "c@example.com", Role: models.RoleAdmin})

	members, err := engine.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "u2", members[0].UID)
}

func TestDemoteResetsTenancy(t *testing.T) {
	engine, records := newTestEngine()
	ctx := context.Background()

	when := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	id := seedAccount(t, records, models.UserAccount{
		UID:           "u1",
		Email:         "bo@example.com",
		Role:          models.RoleMember,
		AgreementDate: &when,
		RentedApartment: &models.RentedApartment{
			Floor: 3, Block: "B", ApartmentNo: 305, Rent: 1800,
		},
	})

	require.NoError(t, engine.Demote(ctx, id))

	account := accountByUID(t, records, "u1")
	require.Equal(t, models.RoleUser, account.Role)
	require.Nil(t, account.RentedApartment)
	require.Nil(t, account.AgreementDate)

	require.NoError(t, engine.Demote(ctx, id), "demoting a plain user is a no-op success")
}

func TestDemoteMissingAccount(t *testing.T) {
	engine, _ := newTestEngine()

	err := engine.Demote(context.Background(), "missing")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
