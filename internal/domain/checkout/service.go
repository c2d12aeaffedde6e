// Package checkout loads everything a cart needs to be priced, runs the
// pricing engine and records coupon redemptions.
package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/cart"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/coupon"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/shipping"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/tax"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
)

// ErrCartEmpty is returned when pricing a cart without items.
var ErrCartEmpty = errors.New("cart is empty")

// rateLookupLimit bounds concurrent tax rate lookups per request.
const rateLookupLimit = 8

// Locker serializes redemptions of one coupon.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Repositories are the data sources the service prices from.
type Repositories struct {
	Carts   cart.Repository
	Coupons coupon.Repository
	Regions shipping.Repository
	Rates   tax.Repository
}

// Settings are the shop-wide pricing settings.
type Settings struct {
	Tax        pricing.TaxSettings
	WeightUnit weight.Unit
}

// Request identifies the cart to price and the customer context.
type Request struct {
	CartID     string
	CouponCode string
	Country    string
	State      string
	Email      string
}

// RedeemRequest completes checkout of a cart.
type RedeemRequest struct {
	Request
	// OrderRef identifies the order the redemption belongs to. Generated when
	// empty.
	OrderRef string
}

// Redemption is the outcome of a completed checkout.
type Redemption struct {
	OrderRef string
	Result   *pricing.Result
}

// Service prices carts.
type Service struct {
	repos    Repositories
	engine   *pricing.Engine
	settings Settings
	locker   Locker

	quotes     metric.Int64Counter
	rejections metric.Int64Counter
	redeemed   metric.Int64Counter
}

// NewService creates a Service. A nil locker relies on the repository's
// atomic redemption alone.
func NewService(
	repos Repositories,
	engine *pricing.Engine,
	settings Settings,
	locker Locker,
	meter metric.Meter,
) (*Service, error) {
	quotes, err := meter.Int64Counter("checkout.quotes",
		metric.WithDescription("Carts priced"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "quotes counter")
	}
	rejections, err := meter.Int64Counter("checkout.coupon.rejections",
		metric.WithDescription("Coupons that did not apply, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rejections counter")
	}
	redeemed, err := meter.Int64Counter("checkout.coupon.redemptions",
		metric.WithDescription("Coupon uses recorded at checkout completion"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "redemptions counter")
	}
	if locker == nil {
		locker = noLock{}
	}
	return &Service{
		repos:      repos,
		engine:     engine,
		settings:   settings,
		locker:     locker,
		quotes:     quotes,
		rejections: rejections,
		redeemed:   redeemed,
	}, nil
}

// Quote prices the cart. A coupon that does not apply is reported in
// Result.Coupon and never fails the quote.
func (s *Service) Quote(ctx context.Context, req Request) (*pricing.Result, error) {
	return s.price(ctx, req)
}

// ApplyCoupon prices the cart with a coupon the customer just entered. A
// coupon that does not apply is returned as *coupon.RejectionError.
func (s *Service) ApplyCoupon(ctx context.Context, req Request) (*pricing.Result, error) {
	if strings.TrimSpace(req.CouponCode) == "" {
		return nil, &coupon.RejectionError{Reason: coupon.ReasonNotFound}
	}
	res, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := res.Coupon.Rejection(); err != nil {
		return nil, err
	}
	return res, nil
}

// Redeem re-prices the cart and records one use of its coupon. The coupon is
// locked for the duration so the usage check and the increment see the same
// tallies.
func (s *Service) Redeem(ctx context.Context, req RedeemRequest) (*Redemption, error) {
	lg := zctx.From(ctx)

	ref := req.OrderRef
	if ref == "" {
		ref = uuid.NewString()
	}
	code := normalizeCode(req.CouponCode)
	if code == "" {
		res, err := s.price(ctx, req.Request)
		if err != nil {
			return nil, err
		}
		return &Redemption{OrderRef: ref, Result: res}, nil
	}

	unlock, err := s.locker.Lock(ctx, "coupon:"+code)
	if err != nil {
		return nil, errors.Wrap(err, "lock coupon")
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			lg.Warn("Release coupon lock", zap.String("coupon_code", code), zap.Error(err))
		}
	}()

	in, err := s.load(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	res, err := s.run(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := res.Coupon.Rejection(); err != nil {
		return nil, err
	}

	r := coupon.Redemption{CouponID: in.Coupon.ID, Email: normalizeEmail(req.Email), OrderRef: ref}
	if err := s.repos.Coupons.Redeem(ctx, in.Coupon, r); err != nil {
		if errors.Is(err, coupon.ErrUsageLimitReached) || errors.Is(err, coupon.ErrPerUserLimitReached) {
			lg.Info("Redemption lost to concurrent checkout", zap.String("coupon_code", code), zap.Error(err))
		}
		return nil, errors.Wrap(err, "redeem coupon")
	}
	s.redeemed.Add(ctx, 1)
	lg.Info("Coupon redeemed",
		zap.String("coupon_code", code),
		zap.String("order_ref", ref),
		zap.String("discount", res.CouponDiscountAmount.StringFixed(2)),
	)
	return &Redemption{OrderRef: ref, Result: res}, nil
}

func (s *Service) price(ctx context.Context, req Request) (*pricing.Result, error) {
	in, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, in)
}

// input is a loaded pricing request plus lookup outcomes the engine does not
// see.
type input struct {
	pricing.Request
	couponCode     string
	couponNotFound bool
}

func (s *Service) run(ctx context.Context, in *input) (*pricing.Result, error) {
	lg := zctx.From(ctx)

	res, err := s.engine.Price(in.Request)
	if err != nil {
		var invalid *pricing.InvalidItemError
		if !errors.As(err, &invalid) {
			lg.Error("Pricing configuration error", zap.Error(err))
		}
		return nil, errors.Wrap(err, "price cart")
	}
	if in.couponNotFound {
		res.Coupon = &pricing.CouponStatus{Code: in.couponCode, Reason: coupon.ReasonNotFound, Required: decimal.Zero}
	}
	s.quotes.Add(ctx, 1)

	if st := res.Coupon; st != nil && !st.Applied {
		s.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(st.Reason))))
		lg.Debug("Coupon not applied",
			zap.String("coupon_code", st.Code),
			zap.String("reason", string(st.Reason)),
		)
	}
	return res, nil
}

// load resolves the cart, coupon, shipping region and tax rates for req.
func (s *Service) load(ctx context.Context, req Request) (*input, error) {
	in := &input{
		Request: pricing.Request{
			Email:      normalizeEmail(req.Email),
			Country:    strings.ToUpper(strings.TrimSpace(req.Country)),
			State:      strings.ToUpper(strings.TrimSpace(req.State)),
			Tax:        s.settings.Tax,
			WeightUnit: s.settings.WeightUnit,
		},
		couponCode: normalizeCode(req.CouponCode),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.repos.Carts.Items(gctx, req.CartID)
		if err != nil {
			return errors.Wrapf(err, "load cart %s", req.CartID)
		}
		if len(items) == 0 {
			return errors.Wrapf(ErrCartEmpty, "cart %s", req.CartID)
		}
		in.Items = items
		return nil
	})
	if in.Country != "" {
		g.Go(func() error {
			region, err := s.repos.Regions.Region(gctx, in.Country, in.State)
			if err != nil {
				return errors.Wrapf(err, "shipping region %s/%s", in.Country, in.State)
			}
			in.Region = region
			return nil
		})
	}
	if in.couponCode != "" {
		g.Go(func() error {
			c, err := s.repos.Coupons.FindByCode(gctx, in.couponCode)
			switch {
			case errors.Is(err, coupon.ErrNotFound):
				in.couponNotFound = true
				return nil
			case err != nil:
				return errors.Wrapf(err, "find coupon %s", in.couponCode)
			}
			usage, err := s.repos.Coupons.UsageRecords(gctx, c.ID)
			if err != nil {
				return errors.Wrapf(err, "coupon %s usage", in.couponCode)
			}
			in.Coupon, in.Usage = c, usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.settings.Tax.Enabled && in.Country != "" {
		if err := s.loadRates(ctx, in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// loadRates resolves the rate for every distinct taxable subject in the cart
// plus the jurisdiction default used for shipping.
func (s *Service) loadRates(ctx context.Context, in *input) error {
	subjects := make(map[tax.Subject]struct{})
	for _, it := range in.Items {
		if it.Taxable {
			subjects[tax.Subject{ProductID: it.ProductID, CategoryID: it.CategoryID}] = struct{}{}
		}
	}

	var (
		mu    sync.Mutex
		rates = make(map[tax.Subject]decimal.Decimal, len(subjects))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rateLookupLimit)
	lookup := func(sub tax.Subject) {
		g.Go(func() error {
			rate, err := s.repos.Rates.Rate(gctx, sub, in.Country, in.State)
			if err != nil {
				return errors.Wrapf(err, "tax rate for %q", sub.ProductID)
			}
			mu.Lock()
			rates[sub] = rate
			mu.Unlock()
			return nil
		})
	}
	lookup(tax.Subject{})
	for sub := range subjects {
		lookup(sub)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	in.DefaultTaxRate = rates[tax.Subject{}]
	in.ShippingTaxRate = in.DefaultTaxRate
	in.TaxRates = make(map[string]decimal.Decimal, len(subjects))
	for sub, rate := range rates {
		if sub.ProductID != "" {
			in.TaxRates[sub.ProductID] = rate
		}
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type noLock struct{}

func (noLock) Lock(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
