package auth

import "github.com/dstepanov2008/shopauth/internal/common"

// Authorize decides whether the actor may act on the resource owned by
// resourceOwnerID. Admins may do anything; non-admins may act on their own
// records unless the operation requires admin rights. The function is pure:
// the actor comes from an already-verified token and no I/O happens here.
//
// A nil actor means the request was never authenticated and yields
// common.ErrorUnauthorized; a live actor that fails the rules yields
// common.ErrorForbidden. Callers must not conflate the two.
func Authorize(actor *Claims, resourceOwnerID string, requiresAdmin bool) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if actor.Admin {
		return nil
	}
	if requiresAdmin {
		return common.ErrorForbidden
	}
	if actor.Subject == resourceOwnerID {
		return nil
	}
	return common.ErrorForbidden
}
