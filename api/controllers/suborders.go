package controllers

import (
	"net/http"
	"strings"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/fulfillment"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/types"
)

// ListSubOrders pages through the supplier's sub-orders, optionally filtered
// by delivery status.
func ListSubOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters orders.SubOrderFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDeliveryStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		items, cursor, err := svc.ListSupplierSubOrders(r.Context(), supplierID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{Items: items, Cursor: cursor})
	}
}

// AdvanceSubOrder records a delivery status transition on a sub-order,
// running settlement, penalty or stock release side effects as needed.
func AdvanceSubOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subOrderID, err := urlUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input fulfillment.AdvanceInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subOrder, err := svc.Advance(r.Context(), actorID, role, subOrderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subOrder)
	}
}
