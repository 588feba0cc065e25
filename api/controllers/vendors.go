package controllers

import (
	"net/http"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/api/validators"
	"github.com/souqline/souqline-backend/internal/referrals"
	"github.com/souqline/souqline-backend/pkg/logger"
)

// RegisterVendor creates a vendor account, records its referral chain and
// optionally purchases a starter pack, paying out the bonus cascade.
func RegisterVendor(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input referrals.SignupInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.Signup(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vendor)
	}
}
