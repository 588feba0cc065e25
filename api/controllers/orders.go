package controllers

import (
	"net/http"
	"strings"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/checkout"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/types"
)

// CreateOrder runs checkout for the authenticated vendor: one order split
// into per-supplier sub-orders with stock reserved atomically.
func CreateOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input checkout.CheckoutInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), vendorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one of the vendor's orders with its sub-orders and
// tracking history.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), vendorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders pages through the vendor's orders, optionally filtered by
// aggregate state or confirmation status.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters orders.OrderFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
			state, err := enums.ParseOrderState(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid state filter"))
				return
			}
			filters.State = &state
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("confirmation_status")); raw != "" {
			status, err := enums.ParseOrderConfirmationStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid confirmation filter"))
				return
			}
			filters.ConfirmationStatus = &status
		}

		items, cursor, err := svc.ListVendorOrders(r.Context(), vendorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{Items: items, Cursor: cursor})
	}
}

// ModifyOrder edits an order during its pending confirmation window. Setting
// confirmation_status to cancelled cancels the order and releases its stock.
func ModifyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _, err := principal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := urlUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input orders.ModifyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Modify(r.Context(), vendorID, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
