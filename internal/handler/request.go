package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/checkout"
)

// pricingRequest is the body shared by every cart endpoint.
type pricingRequest struct {
	CouponCode string `validate:"omitempty,max=64,printascii"`
	Country    string `validate:"omitempty,iso3166_1_alpha2"`
	State      string `validate:"omitempty,max=8,alphanum"`
	Email      string `validate:"omitempty,email,max=254"`
	OrderRef   string `validate:"omitempty,max=128,printascii"`
}

func (p pricingRequest) toCheckout(cartID string) checkout.Request {
	return checkout.Request{
		CartID:     cartID,
		CouponCode: p.CouponCode,
		Country:    p.Country,
		State:      p.State,
		Email:      p.Email,
	}
}

var fieldNames = map[string]string{
	"CouponCode": "couponCode",
	"Country":    "country",
	"State":      "state",
	"Email":      "email",
	"OrderRef":   "orderRef",
}

// decodePricingRequest reads the JSON body. Unknown fields are ignored and
// null counts as absent. An empty body is an empty request.
func decodePricingRequest(body io.Reader) (pricingRequest, error) {
	var req pricingRequest
	data, err := io.ReadAll(body)
	if err != nil {
		return req, errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return req, nil
	}

	d := jx.DecodeBytes(data)
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "couponCode":
			dst = &req.CouponCode
		case "country":
			dst = &req.Country
		case "state":
			dst = &req.State
		case "email":
			dst = &req.Email
		case "orderRef":
			dst = &req.OrderRef
		default:
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		*dst = v
		return nil
	})
	if err != nil {
		return req, errors.Wrap(err, "decode body")
	}
	return req, nil
}

// decode reads and validates the body, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, requireCoupon bool) (pricingRequest, bool) {
	req, err := decodePricingRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", "")
		return req, false
	}
	if r.PathValue("cartID") == "" {
		writeProblem(w, http.StatusBadRequest, "cart id is required", "")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeProblem(w, http.StatusBadRequest, "invalid field "+fieldNames[verrs[0].Field()], "")
			return req, false
		}
		h.writeError(w, r, err)
		return req, false
	}
	if requireCoupon && req.CouponCode == "" {
		writeProblem(w, http.StatusBadRequest, "couponCode is required", "")
		return req, false
	}
	return req, true
}
