// Package promo decides whether a promo code applies to an order and how much it takes off.
package promo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
)

var (
	ErrNotFound      = errors.New("invalid promo code")
	ErrExpired       = errors.New("promo code expired")
	ErrLimitReached  = errors.New("promo code usage limit reached")
	ErrNotApplicable = errors.New("promo code not applicable to selected services")
)

type BelowMinimumError struct {
	Min float64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum order amount is $%s", formatAmount(e.Min))
}

// IsRejection reports whether err is one of the user-facing evaluation outcomes.
func IsRejection(err error) bool {
	var below *BelowMinimumError
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) || errors.Is(err, ErrLimitReached) ||
		errors.Is(err, ErrNotApplicable) || errors.As(err, &below)
}

// Application is the discount granted. Percentage is nil for fixed amounts.
type Application struct {
	Amount      float64  `json:"amount"`
	Percentage  *float64 `json:"percentage"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	PromoID     string   `json:"-"`
}

func (a Application) Discount() *model.Discount {
	return &model.Discount{Amount: a.Amount, Percentage: a.Percentage, Code: a.Code, Description: a.Description}
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply checks p against the order in a fixed order and stops at the first failure.
// It never mutates p; redemption is the caller's job.
func Apply(p model.PromoCode, serviceIDs []string, orderAmount float64, now time.Time) (Application, error) {
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return Application{}, ErrExpired
	}
	if p.UsageCount >= p.UsageLimit {
		return Application{}, ErrLimitReached
	}
	if orderAmount < p.MinOrderAmount {
		return Application{}, &BelowMinimumError{Min: p.MinOrderAmount}
	}
	if len(p.ApplicableServices) > 0 && !intersects(p.ApplicableServices, serviceIDs) {
		return Application{}, ErrNotApplicable
	}

	app := Application{Code: Normalize(p.Code), Description: p.Description, PromoID: p.ID}
	if p.DiscountType == model.DiscountPercentage {
		app.Amount = orderAmount * p.DiscountValue / 100
		pct := p.DiscountValue
		app.Percentage = &pct
	} else {
		app.Amount = p.DiscountValue
	}
	if p.MaxDiscountAmount != nil {
		app.Amount = math.Min(app.Amount, *p.MaxDiscountAmount)
	}
	return app, nil
}

func intersects(allowed, requested []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

type Lookup interface {
	ListActiveByCode(ctx context.Context, code string) ([]model.PromoCode, error)
}

type Evaluator struct {
	codes Lookup
}

func NewEvaluator(codes Lookup) *Evaluator {
	return &Evaluator{codes: codes}
}

// Evaluate looks the code up among active codes and applies the first match.
// It has no side effects.
func (e *Evaluator) Evaluate(ctx context.Context, code string, serviceIDs []string, orderAmount float64, now time.Time) (Application, error) {
	code = Normalize(code)
	if code == "" {
		return Application{}, ErrNotFound
	}
	found, err := e.codes.ListActiveByCode(ctx, code)
	if err != nil {
		return Application{}, err
	}
	if len(found) == 0 {
		return Application{}, ErrNotFound
	}
	return Apply(found[0], serviceIDs, orderAmount, now)
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
