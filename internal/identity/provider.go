// Package identity holds the identity-provider side of the system:
// resolving a stable user identifier to its live account, and the
// session store behind token refresh.
package identity

import (
	"context"

	"skyview/api/internal/models"
)

// Provider resolves the claims carried by an access token to the
// current account document. The auth service implements it; middleware
// and tests consume the interface.
type Provider interface {
	UserByUID(ctx context.Context, uid string) (models.UserAccount, error)
}
