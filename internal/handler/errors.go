package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/checkout"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/shipping"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/lock"
)

// writeError maps a service error to a status code and problem body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejection *coupon.RejectionError
	if errors.As(err, &rejection) {
		writeProblem(w, http.StatusUnprocessableEntity, rejection.Message(), string(rejection.Reason))
		return
	}

	var invalid *pricing.InvalidItemError
	if errors.As(err, &invalid) {
		writeProblem(w, http.StatusBadRequest, invalid.Error(), "")
		return
	}

	switch {
	case errors.Is(err, checkout.ErrCartEmpty):
		writeProblem(w, http.StatusBadRequest, "cart is empty", "")
	case errors.Is(err, cart.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "cart not found", "")
	case errors.Is(err, shipping.ErrRegionNotFound):
		writeProblem(w, http.StatusNotFound, "shipping is not available to this destination", "")
	case errors.Is(err, coupon.ErrUsageLimitReached):
		rej := &coupon.RejectionError{Reason: coupon.ReasonGlobalLimit}
		writeProblem(w, http.StatusUnprocessableEntity, rej.Message(), string(rej.Reason))
	case errors.Is(err, coupon.ErrPerUserLimitReached):
		rej := &coupon.RejectionError{Reason: coupon.ReasonPerUserLimit}
		writeProblem(w, http.StatusUnprocessableEntity, rej.Message(), string(rej.Reason))
	case errors.Is(err, lock.ErrNotAcquired):
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusServiceUnavailable, "checkout is busy, retry shortly", "")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, "internal server error", "")
	}
}

// writeProblem writes {"code":422,"message":"...","reason":"..."}; reason is
// omitted when empty.
func writeProblem(w http.ResponseWriter, status int, message, reason string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	if reason != "" {
		e.FieldStart("reason")
		e.Str(reason)
	}
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}
