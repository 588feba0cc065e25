package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/souqline/souqline-backend/api/middleware"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

// principal resolves the authenticated account id and role from the request
// context seeded by the auth middleware.
func principal(ctx context.Context) (uuid.UUID, enums.ActorRole, error) {
	raw := middleware.AccountIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown actor role")
	}
	return accountID, role, nil
}

// accountTypeFor maps an actor role onto its wallet-holding account type.
// Admins hold no wallet.
func accountTypeFor(role enums.ActorRole) (enums.AccountType, error) {
	switch role {
	case enums.ActorRoleVendor:
		return enums.AccountTypeVendor, nil
	case enums.ActorRoleSupplier:
		return enums.AccountTypeSupplier, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "role has no wallet")
}

func urlUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}
