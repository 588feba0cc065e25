package controllers

import (
	"net/http"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/types"
)

// GetWallet returns the caller's wallet, creating nothing: an account that
// never transacted simply has no wallet yet.
func GetWallet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
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

		walletRow, err := svc.GetByAccount(r.Context(), accountID, accountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletRow)
	}
}

// ListWalletTransactions pages through the caller's ledger history, newest
// first.
func ListWalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, cursor, err := svc.ListTransactions(r.Context(), accountID, accountType, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{Items: items, Cursor: cursor})
	}
}
