package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponResult is the outcome of applying a coupon to a cart total
type CouponResult struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Subtotal float64 `json:"subtotal"`
}

// CreateCouponInput is what an admin submits to create a coupon
type CreateCouponInput struct {
	Code            string    `json:"code" validate:"required"`
	DiscountPercent float64   `json:"discountPercent" validate:"gte=0,lte=100"`
	Amount          float64   `json:"amount" validate:"gte=0"`
	MinPrice        float64   `json:"minPrice" validate:"gte=0"`
	StartDate       time.Time `json:"startDate" validate:"required"`
	EndDate         time.Time `json:"endDate" validate:"required"`
	IsActive        *bool     `json:"isActive"`
}

type CouponService struct {
	coupons repository.CouponRepository
	now     func() time.Time
	log     *logger.Logger
}

func NewCouponService(coupons repository.CouponRepository, log *logger.Logger) *CouponService {
	return &CouponService{coupons: coupons, now: time.Now, log: log.WithComponent("coupon_service")}
}

func couponError(code, message string) *apperrors.AppError {
	return apperrors.Validation(code, message).WithAutoRemove()
}

// Apply evaluates code against cartTotal. It never writes.
func (s *CouponService) Apply(ctx context.Context, code string, cartTotal float64) (*CouponResult, error) {
	code = models.NormalizeCouponCode(code)
	if code == "" {
		return nil, apperrors.BadRequest("Coupon code is required")
	}
	if cartTotal < 0 || math.IsNaN(cartTotal) {
		return nil, apperrors.BadRequest("Cart total must be a non-negative number")
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, couponError(apperrors.CodeCouponNotFound, "Invalid coupon code")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load coupon", err)
	}

	if !coupon.IsActive {
		return nil, couponError(apperrors.CodeCouponInactive, "This coupon is not active")
	}
	if !coupon.InWindow(s.now()) {
		return nil, couponError(apperrors.CodeCouponOutOfWindow, "This coupon is expired or not yet valid")
	}
	if cartTotal < coupon.MinPrice {
		return nil, couponError(apperrors.CodeCouponBelowMinimum,
			fmt.Sprintf("Minimum order value is Rs. %s", formatAmount(coupon.MinPrice)))
	}

	discount := CouponDiscount(coupon, cartTotal)
	return &CouponResult{
		Code:     coupon.Code,
		Discount: discount,
		Subtotal: math.Round(cartTotal - discount),
	}, nil
}

// CouponDiscount computes the rounded discount of c on total, bounded by [0, total]
func CouponDiscount(c *models.Coupon, total float64) float64 {
	var discount float64
	if c.DiscountPercent > 0 {
		discount = total * c.DiscountPercent / 100
	} else {
		discount = c.Amount
	}
	discount = math.Max(0, math.Min(discount, total))
	discount = math.Round(discount)
	if discount > total {
		discount = math.Floor(total)
	}
	return discount
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func (s *CouponService) Create(ctx context.Context, in CreateCouponInput) (*models.Coupon, error) {
	code := models.NormalizeCouponCode(in.Code)
	switch {
	case code == "":
		return nil, apperrors.BadRequest("Coupon code is required")
	case in.DiscountPercent <= 0 && in.Amount <= 0:
		return nil, apperrors.BadRequest("Either discountPercent or amount is required")
	case in.DiscountPercent > 100:
		return nil, apperrors.BadRequest("discountPercent must be at most 100")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return nil, apperrors.BadRequest("startDate and endDate are required")
	case in.EndDate.Before(in.StartDate):
		return nil, apperrors.BadRequest("endDate must not be before startDate")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	coupon := &models.Coupon{
		Code:            code,
		DiscountPercent: in.DiscountPercent,
		Amount:          in.Amount,
		MinPrice:        in.MinPrice,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		IsActive:        active,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.CodeDuplicateCoupon, "A coupon with this code already exists")
		}
		return nil, apperrors.Internal("Failed to create coupon", err)
	}
	s.log.Info("Coupon created", "code", coupon.Code)
	return coupon, nil
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list coupons", err)
	}
	return coupons, nil
}

// Toggle flips a coupon's active flag
func (s *CouponService) Toggle(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeCouponNotFound, "Coupon not found")
	}
	updated, err := s.coupons.SetActive(ctx, id, !coupon.IsActive)
	if err != nil {
		return nil, notFoundOr(err, apperrors.CodeCouponNotFound, "Coupon not found")
	}
	return updated, nil
}

func (s *CouponService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.coupons.Delete(ctx, id); err != nil {
		return notFoundOr(err, apperrors.CodeCouponNotFound, "Coupon not found")
	}
	return nil
}

// notFoundOr maps ErrNotFound to a NotFound AppError with code, anything else to INTERNAL_ERROR
func notFoundOr(err error, code, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(code, message, err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal("Internal server error", err)
}
