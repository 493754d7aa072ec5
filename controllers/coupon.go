package controllers

import (
	"net/http"

	"go-storefront/services"
	"go-storefront/utils"
)

type CouponController struct {
	coupons *services.CouponService
}

func NewCouponController(coupons *services.CouponService) *CouponController {
	return &CouponController{coupons: coupons}
}

type applyCouponRequest struct {
	Code      string  `json:"code" validate:"required"`
	CartTotal float64 `json:"cartTotal" validate:"gte=0"`
}

// ApplyCoupon previews a coupon against a cart total. Failures may carry autoRemove.
func (cc *CouponController) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	result, err := cc.coupons.Apply(r.Context(), req.Code, req.CartTotal)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":  "Coupon applied",
		"code":     result.Code,
		"discount": result.Discount,
		"subtotal": result.Subtotal,
	})
}

func (cc *CouponController) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCouponInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	coupon, err := cc.coupons.Create(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"coupon": coupon})
}

func (cc *CouponController) GetCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := cc.coupons.List(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"coupons": coupons})
}

func (cc *CouponController) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	coupon, err := cc.coupons.Toggle(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"coupon": coupon})
}

func (cc *CouponController) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := cc.coupons.Delete(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "Coupon deleted"})
}
