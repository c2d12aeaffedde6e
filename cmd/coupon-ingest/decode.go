package main

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
)

// decodeCoupon parses one JSON line. Decimal fields accept strings or
// numbers, limits are enabled by presence, null is treated as absent and
// unknown fields are ignored.
func decodeCoupon(data []byte) (*coupon.Coupon, error) {
	c := &coupon.Coupon{
		AppliesTo:   coupon.ScopeAllProducts,
		Requirement: coupon.RequirementNone,
		CountryType: coupon.CountriesAll,
	}
	var hasStart, hasEnd bool

	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch string(key) {
		case "code":
			c.Code, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "category":
			err = decodeEnum(d, &c.Category)
		case "discountType":
			err = decodeEnum(d, &c.DiscountType)
		case "discountValue":
			c.DiscountValue, err = decodeDecimal(d)
		case "saleValue":
			c.SaleValue, err = decodeDecimal(d)
		case "appliesTo":
			err = decodeEnum(d, &c.AppliesTo)
		case "products":
			c.Products, err = decodeProducts(d)
		case "categories":
			c.Categories, err = decodeStrings(d)
		case "requirement":
			err = decodeEnum(d, &c.Requirement)
		case "requirementValue":
			c.RequirementValue, err = decodeDecimal(d)
		case "usageLimit":
			c.UsageLimit, err = d.Int()
			c.UsageLimitEnabled = true
		case "perUserLimit":
			c.PerUserLimit, err = d.Int()
			c.PerUserLimitEnabled = true
		case "countryType":
			err = decodeEnum(d, &c.CountryType)
		case "countries":
			c.Countries, err = decodeStrings(d)
		case "startsAt":
			c.StartsAt, err = decodeTime(d)
			hasStart = true
		case "endsAt":
			c.EndsAt, err = decodeTime(d)
			hasEnd = true
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode coupon")
	}

	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.Code == "" {
		return nil, errors.New("coupon code is missing")
	}
	if hasStart != hasEnd {
		return nil, errors.Errorf("%s: date window needs both startsAt and endsAt", c.Code)
	}
	c.HasDateWindow = hasStart
	if (c.UsageLimitEnabled && c.UsageLimit < 0) || (c.PerUserLimitEnabled && c.PerUserLimit < 0) {
		return nil, errors.Errorf("%s: negative usage limit", c.Code)
	}
	for i, country := range c.Countries {
		c.Countries[i] = strings.ToUpper(country)
	}
	return c, nil
}

func decodeEnum[T ~string](d *jx.Decoder, dst *T) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = T(s)
	return nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch tt := d.Next(); tt {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	default:
		return decimal.Zero, errors.Errorf("expected decimal, got %s", tt)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %q", s)
	}
	return v, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse time")
	}
	return t, nil
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// decodeProducts reads {"productId": ["skuId", ...]}. A null or empty list
// allows every variant.
func decodeProducts(d *jx.Decoder) (map[string][]string, error) {
	out := make(map[string][]string)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			out[string(key)] = nil
			return d.Null()
		}
		skus, err := decodeStrings(d)
		if err != nil {
			return err
		}
		out[string(key)] = skus
		return nil
	})
	return out, err
}
