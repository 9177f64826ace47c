package auth

import (
	"github.com/spec-kit/shipment-tracker/internal/domain"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// RequireRole is the capability check gating every operation. It fails with
// a Forbidden error naming the roles actually required; callers must not
// proceed past a failed check.
func RequireRole(user *domain.User, allowed ...domain.Role) error {
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = string(role)
	}
	return apperrors.NewForbidden("insufficient role", names)
}
