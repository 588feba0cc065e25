package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/withdrawals"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/types"
)

type withdrawalRequestBody struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type withdrawalDecisionBody struct {
	Outcome string `json:"outcome" validate:"required"`
}

// RequestWithdrawal opens a payout request against the caller's wallet.
func RequestWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, role, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accountType, err := accountTypeFor(role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), accountID, accountType, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// DecideWithdrawal approves or refuses a pending request. Only the first
// decision wins; the payout debit happens atomically with the approval.
func DecideWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := urlUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := enums.ParseWithdrawalStatus(body.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		request, err := svc.Decide(r.Context(), adminID, requestID, outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// CancelWithdrawal lets the requester retract a still-pending request.
func CancelWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, role, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accountType, err := accountTypeFor(role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := urlUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), accountID, accountType, requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// ListWithdrawals pages through the caller's withdrawal requests.
func ListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, role, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		accountType, err := accountTypeFor(role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, cursor, err := svc.List(r.Context(), accountID, accountType, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{Items: items, Cursor: cursor})
	}
}
