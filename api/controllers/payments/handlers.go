package payments

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thomaggio/thomaggio-backend/api/responses"
	"github.com/thomaggio/thomaggio-backend/api/validators"
	paymentssvc "github.com/thomaggio/thomaggio-backend/internal/payments"
	mpwebhook "github.com/thomaggio/thomaggio-backend/internal/webhooks/mercadopago"
	"github.com/thomaggio/thomaggio-backend/pkg/enums"
	pkgerrors "github.com/thomaggio/thomaggio-backend/pkg/errors"
	"github.com/thomaggio/thomaggio-backend/pkg/logger"
)

// PaymentCreate opens a local charge for cash or card orders.
func PaymentCreate(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		record, err := svc.CreateGeneric(r.Context(), payload.OrderCode, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentView(record))
	}
}

// PaymentPIXCharge opens (or returns the still-pending) PIX charge for an
// order.
func PaymentPIXCharge(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pixChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CreatePIX(r.Context(), payload.OrderCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentView(record))
	}
}

// PaymentRetryPIX cancels an expired charge and opens a fresh one.
func PaymentRetryPIX(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pixChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RegeneratePIX(r.Context(), payload.OrderCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentView(record))
	}
}

// PaymentByOrder returns the latest charge for an order.
func PaymentByOrder(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.GetByOrderCode(r.Context(), chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentView(record))
	}
}

// PaymentByTransaction returns one charge by its gateway transaction code.
func PaymentByTransaction(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.GetByTransactionCode(r.Context(), chi.URLParam(r, "transactionCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentView(record))
	}
}

// PaymentStatus is the polling endpoint for a PIX charge. Expired pending
// charges report expired=true without a state change.
func PaymentStatus(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.CheckPIXStatus(r.Context(), chi.URLParam(r, "orderCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

// PaymentChangeMethod switches the order's payment method, cancelling and
// regenerating charges as needed.
func PaymentChangeMethod(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload changeMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		outcome, err := svc.ChangeMethod(r.Context(), chi.URLParam(r, "orderCode"), method, payload.CashTender)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newChangeMethodResponse(outcome))
	}
}

// PaymentWebhook receives Mercado Pago notifications. The gateway sends
// fields beyond the ones consumed here, so decoding is deliberately lenient.
func PaymentWebhook(svc *mpwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event mpwebhook.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		result, err := svc.HandleEvent(r.Context(), &event)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
