package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
)

func (h *Handler) writeResult(w http.ResponseWriter, cartID string, res *pricing.Result, orderRef string) {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("cartId")
	e.Str(cartID)
	if orderRef != "" {
		e.FieldStart("orderRef")
		e.Str(orderRef)
	}
	e.FieldStart("currency")
	e.Str(h.format.Currency())

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range res.Items {
		h.encodeItem(&e, it)
	}
	e.ArrEnd()

	h.money(&e, "subtotal", res.Subtotal)
	h.money(&e, "couponDiscount", res.CouponDiscountAmount)
	h.money(&e, "discountedSubtotal", res.DiscountedSubtotal)

	e.FieldStart("shipping")
	e.ObjStart()
	h.money(&e, "cost", res.ShippingCost)
	h.money(&e, "discount", res.ShippingDiscount)
	if res.ShippingWaivedBy != "" {
		e.FieldStart("waivedBy")
		e.Str(string(res.ShippingWaivedBy))
	}
	e.ObjEnd()

	e.FieldStart("tax")
	e.ObjStart()
	h.money(&e, "taxableAmount", res.TotalTaxableAmount)
	h.money(&e, "sales", res.SalesTax)
	h.money(&e, "shipping", res.ShippingTax)
	h.money(&e, "includedSales", res.IncludedSalesTax)
	h.money(&e, "includedShipping", res.IncludedShippingTax)
	e.ObjEnd()

	h.money(&e, "grandTotal", res.GrandTotal)

	e.FieldStart("totalWeight")
	e.ObjStart()
	e.FieldStart("value")
	e.Str(res.TotalWeight.Round(3).String())
	e.FieldStart("unit")
	e.Str(string(res.WeightUnit))
	e.FieldStart("display")
	e.Str(h.format.Weight(res.TotalWeight, res.WeightUnit))
	e.ObjEnd()

	if st := res.Coupon; st != nil {
		e.FieldStart("coupon")
		e.ObjStart()
		e.FieldStart("code")
		e.Str(st.Code)
		e.FieldStart("applied")
		e.Bool(st.Applied)
		if !st.Applied {
			rej := &coupon.RejectionError{Code: st.Code, Reason: st.Reason, Required: st.Required}
			e.FieldStart("reason")
			e.Str(string(st.Reason))
			e.FieldStart("message")
			e.Str(rej.Message())
		}
		e.ObjEnd()
	}

	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) encodeItem(e *jx.Encoder, it cart.PricedItem) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(it.ProductID)
	if it.SKUID != "" {
		e.FieldStart("skuId")
		e.Str(it.SKUID)
	}
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	h.money(e, "unitPrice", it.UnitPrice)
	e.FieldStart("couponApplicable")
	e.Bool(it.CouponApplicable)
	h.money(e, "unitDiscount", it.UnitDiscount)
	h.money(e, "totalDiscount", it.TotalDiscount)
	h.money(e, "unitDiscountedPrice", it.UnitDiscountedPrice)
	h.money(e, "totalDiscountedPrice", it.TotalDiscountedPrice)
	e.FieldStart("taxRate")
	e.Str(it.TaxRate.String())
	h.money(e, "tax", it.Tax)
	e.ObjEnd()
}

// money writes {"amount":"12.50","display":"$ 12.50"} under name.
func (h *Handler) money(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.ObjStart()
	e.FieldStart("amount")
	e.Str(v.StringFixed(2))
	e.FieldStart("display")
	e.Str(h.format.Money(v))
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
