// Package handler serves the checkout JSON API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/checkout"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/format"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Checkout is the service the handler delegates to.
type Checkout interface {
	Quote(ctx context.Context, req checkout.Request) (*pricing.Result, error)
	ApplyCoupon(ctx context.Context, req checkout.Request) (*pricing.Result, error)
	Redeem(ctx context.Context, req checkout.RedeemRequest) (*checkout.Redemption, error)
}

// Handler maps HTTP requests onto the checkout service.
type Handler struct {
	checkout Checkout
	format   *format.Formatter
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(svc Checkout, f *format.Formatter) *Handler {
	return &Handler{
		checkout: svc,
		format:   f,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/carts/{cartID}/quote", h.Quote)
	mux.HandleFunc("POST /api/carts/{cartID}/coupon", h.ApplyCoupon)
	mux.HandleFunc("POST /api/carts/{cartID}/redeem", h.Redeem)
}

// Quote prices a cart. Coupon problems are reported in the body, never as an
// error status.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, false)
	if !ok {
		return
	}
	res, err := h.checkout.Quote(r.Context(), req.toCheckout(r.PathValue("cartID")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, r.PathValue("cartID"), res, "")
}

// ApplyCoupon prices a cart with a coupon the customer entered and answers
// 422 when it does not apply.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, true)
	if !ok {
		return
	}
	res, err := h.checkout.ApplyCoupon(r.Context(), req.toCheckout(r.PathValue("cartID")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, r.PathValue("cartID"), res, "")
}

// Redeem completes checkout and records the coupon use.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, false)
	if !ok {
		return
	}
	red, err := h.checkout.Redeem(r.Context(), checkout.RedeemRequest{
		Request:  req.toCheckout(r.PathValue("cartID")),
		OrderRef: req.OrderRef,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResult(w, r.PathValue("cartID"), red.Result, red.OrderRef)
}
