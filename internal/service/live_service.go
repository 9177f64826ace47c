package service

import (
	"context"
	"time"

	"github.com/spec-kit/shipment-tracker/internal/auth"
	"github.com/spec-kit/shipment-tracker/internal/domain"
	"github.com/spec-kit/shipment-tracker/internal/repository"
	apperrors "github.com/spec-kit/shipment-tracker/pkg/util"
)

// LiveService computes the live aggregation view: every active shipment in
// scope joined with its latest fix. Admins see all shipments (optionally
// narrowed to one supplier), suppliers only their own.
type LiveService struct {
	view    repository.LiveViewRepository
	timeout time.Duration
	maxRows int
}

// NewLiveService constructs the service.
func NewLiveService(view repository.LiveViewRepository, timeout time.Duration, maxRows int) *LiveService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRows <= 0 {
		maxRows = 500
	}
	return &LiveService{view: view, timeout: timeout, maxRows: maxRows}
}

// Snapshot returns the live view for the actor's scope. supplierFilter is an
// admin-only narrowing; suppliers are always pinned to themselves.
func (s *LiveService) Snapshot(ctx context.Context, actor *domain.User, supplierFilter *string) ([]domain.LiveEntry, error) {
	if err := auth.RequireRole(actor, domain.RoleAdmin, domain.RoleSupplier); err != nil {
		return nil, err
	}

	scope := repository.LiveScope{Limit: s.maxRows}
	switch actor.Role {
	case domain.RoleSupplier:
		scope.SupplierID = &actor.ID
	case domain.RoleAdmin:
		scope.SupplierID = supplierFilter
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.view.Snapshot(opCtx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
