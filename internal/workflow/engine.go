// Package workflow is the agreement lifecycle engine: submission of
// rental requests, admin decisions, and the resulting role transitions
// on user accounts.
package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"skyview/api/internal/models"
	"skyview/api/internal/store"
)

type Engine struct {
	records store.Store
	log     zerolog.Logger
	now     func() time.Time
}

func NewEngine(records store.Store, log zerolog.Logger) *Engine {
	return &Engine{
		records: records,
		log:     log,
		now:     time.Now,
	}
}

// SubmitRequest files a rental application for apt on behalf of
// requester. Admin accounts are refused; so is a requester who already
// has a pending request for any apartment. Apartment fields are copied
// into the request, later rent changes do not affect it.
func (e *Engine) SubmitRequest(ctx context.Context, requester models.UserAccount, apt models.Apartment) (models.AgreementRequest, error) {
	if requester.Role == models.RoleAdmin {
		return models.AgreementRequest{}, ErrPermission
	}

	docs, err := e.records.QueryWhere(ctx, models.CollectionAgreements, store.Where("userId", requester.UID))
	if err != nil {
		return models.AgreementRequest{}, err
	}
	for _, doc := range docs {
		var existing models.AgreementRequest
		if err := doc.Decode(&existing); err != nil {
			return models.AgreementRequest{}, err
		}
		if existing.Status == models.AgreementStatusPending {
			return models.AgreementRequest{}, ErrDuplicateRequest
		}
	}

	request := models.AgreementRequest{
		UserID:      requester.UID,
		UserName:    requester.Name,
		UserEmail:   requester.Email,
		Floor:       apt.Floor,
		Block:       apt.Block,
		ApartmentNo: apt.ApartmentNo,
		Rent:        apt.Rent,
		Status:      models.AgreementStatusPending,
		RequestDate: e.now().UTC(),
	}

	id, err := e.records.Create(ctx, models.CollectionAgreements, request)
	if err != nil {
		return models.AgreementRequest{}, err
	}
	request.ID = id

	e.log.Info().
		Str("request_id", id).
		Str("uid", requester.UID).
		Int("apartment_no", apt.ApartmentNo).
		Msg("agreement request submitted")

	return request, nil
}

// Decide moves a pending request to checked. Accept additionally
// promotes the requester's account: role=member, agreementDate=now,
// rentedApartment copied from the request snapshot. The two writes hit
// the store separately; if only one commits the caller gets a
// *PartialError rather than a success.
func (e *Engine) Decide(ctx context.Context, requestID string, decision models.Decision) error {
	// Re-read right before committing so a request another admin
	// already decided fails instead of being processed twice.
	request, err := e.fetchRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.AgreementStatusPending {
		return ErrInvalidState
	}

	err = e.records.Update(ctx, models.CollectionAgreements, requestID, map[string]any{
		"status": models.AgreementStatusChecked,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidState
		}
		return err
	}

	if decision == models.DecisionReject {
		e.log.Info().Str("request_id", requestID).Msg("agreement request rejected")
		return nil
	}

	account, err := e.findAccountByUID(ctx, request.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Status is already checked; surface the lookup failure as
			// its own condition so the admin can reconcile.
			return ErrAccountNotFound
		}
		return &PartialError{RequestID: requestID, StatusUpdated: true, Err: err}
	}

	promotion := map[string]any{
		"role":          models.RoleMember,
		"agreementDate": e.now().UTC(),
		"rentedApartment": models.RentedApartment{
			Floor:       request.Floor,
			Block:       request.Block,
			ApartmentNo: request.ApartmentNo,
			Rent:        request.Rent,
		},
	}
	if err := e.records.Update(ctx, models.CollectionUsers, account.ID, promotion); err != nil {
		return &PartialError{RequestID: requestID, StatusUpdated: true, Err: err}
	}

	e.log.Info().
		Str("request_id", requestID).
		Str("uid", request.UserID).
		Msg("agreement accepted, user promoted to member")

	return nil
}

// ListPending returns every request still awaiting a decision, newest
// first. Status filtering happens in process: the store predicate is a
// single field and userId is the indexed one.
func (e *Engine) ListPending(ctx context.Context) ([]models.AgreementRequest, error) {
	docs, err := e.records.QueryWhere(ctx, models.CollectionAgreements, store.All())
	if err != nil {
		return nil, err
	}
	return decodePending(docs)
}

// WatchPending delivers the full pending set on every change until the
// returned subscription is cancelled.
func (e *Engine) WatchPending(ctx context.Context, fn func([]models.AgreementRequest)) (store.Subscription, error) {
	return e.records.Subscribe(ctx, models.CollectionAgreements, store.All(), func(docs []store.Document) {
		pending, err := decodePending(docs)
		if err != nil {
			e.log.Warn().Err(err).Msg("pending snapshot decode failed")
			return
		}
		fn(pending)
	})
}

// ListMembers returns all accounts currently renting an apartment.
func (e *Engine) ListMembers(ctx context.Context) ([]models.UserAccount, error) {
	docs, err := e.records.QueryWhere(ctx, models.CollectionUsers, store.Where("role", models.RoleMember))
	if err != nil {
		return nil, err
	}
	return decodeAccounts(docs)
}

func (e *Engine) WatchMembers(ctx context.Context, fn func([]models.UserAccount)) (store.Subscription, error) {
	return e.records.Subscribe(ctx, models.CollectionUsers, store.Where("role", models.RoleMember), func(docs []store.Document) {
		members, err := decodeAccounts(docs)
		if err != nil {
			e.log.Warn().Err(err).Msg("member snapshot decode failed")
			return
		}
		fn(members)
	})
}

// Demote unconditionally resets an account to a plain user and clears
// its tenancy fields. Demoting an account that is already a plain user
// is a no-op success.
func (e *Engine) Demote(ctx context.Context, accountID string) error {
	err := e.records.Update(ctx, models.CollectionUsers, accountID, map[string]any{
		"role":            models.RoleUser,
		"rentedApartment": nil,
		"agreementDate":   nil,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	e.log.Info().Str("account_id", accountID).Msg("account demoted to user")
	return nil
}

func (e *Engine) fetchRequest(ctx context.Context, requestID string) (models.AgreementRequest, error) {
	docs, err := e.records.QueryWhere(ctx, models.CollectionAgreements, store.All())
	if err != nil {
		return models.AgreementRequest{}, err
	}
	for _, doc := range docs {
		if doc.ID != requestID {
			continue
		}
		var request models.AgreementRequest
		if err := doc.Decode(&request); err != nil {
			return models.AgreementRequest{}, err
		}
		request.ID = doc.ID
		return request, nil
	}
	return models.AgreementRequest{}, ErrInvalidState
}

func (e *Engine) findAccountByUID(ctx context.Context, uid string) (models.UserAccount, error) {
	docs, err := e.records.QueryWhere(ctx, models.CollectionUsers, store.Where("uid", uid))
	if err != nil {
		return models.UserAccount{}, err
	}
	if len(docs) == 0 {
		return models.UserAccount{}, ErrAccountNotFound
	}

	var account models.UserAccount
	if err := docs[0].Decode(&account); err != nil {
		return models.UserAccount{}, err
	}
	account.ID = docs[0].ID
	return account, nil
}

func decodePending(docs []store.Document) ([]models.AgreementRequest, error) {
	pending := make([]models.AgreementRequest, 0, len(docs))
	for _, doc := range docs {
		var request models.AgreementRequest
		if err := doc.Decode(&request); err != nil {
			return nil, err
		}
		if request.Status != models.AgreementStatusPending {
			continue
		}
		request.ID = doc.ID
		pending = append(pending, request)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].RequestDate.After(pending[j].RequestDate)
	})
	return pending, nil
}

func decodeAccounts(docs []store.Document) ([]models.UserAccount, error) {
	accounts := make([]models.UserAccount, 0, len(docs))
	for _, doc := range docs {
		var account models.UserAccount
		if err := doc.Decode(&account); err != nil {
			return nil, err
		}
		account.ID = doc.ID
		accounts = append(accounts, account)
	}
	return accounts, nil
}
