package promo

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thomaggio/thomaggio-backend/api/responses"
	promosvc "github.com/thomaggio/thomaggio-backend/internal/promo"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

// PromoApply validates and snapshots a promo code onto a cart.
func PromoApply(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Apply(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "cartCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// PromoRemove clears the promo snapshot from a cart. Idempotent.
func PromoRemove(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Remove(r.Context(), chi.URLParam(r, "cartCode")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
