package controllers

import (
	"context"
	"net/http"
	"time"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/services"
	"go-storefront/utils"
)

type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

func (sc *SettingsController) GetDeliveryCharge(w http.ResponseWriter, r *http.Request) {
	charge, err := sc.settings.DeliveryCharge(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"deliveryCharge": charge})
}

type deliveryChargeRequest struct {
	DeliveryCharge *float64 `json:"deliveryCharge" validate:"required"`
}

func (sc *SettingsController) SetDeliveryCharge(w http.ResponseWriter, r *http.Request) {
	var req deliveryChargeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	charge, err := sc.settings.SetDeliveryCharge(r.Context(), *req.DeliveryCharge)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"deliveryCharge": charge})
}

// HealthController reports liveness and whether the store answers
type HealthController struct {
	ping func(context.Context) error
	log  *logger.Logger
}

func NewHealthController(ping func(context.Context) error, log *logger.Logger) *HealthController {
	return &HealthController{ping: ping, log: log.WithComponent("health")}
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if hc.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hc.ping(ctx); err != nil {
			logger.FromContext(r.Context(), hc.log).Warn("Store ping failed", "error", err)
			utils.WriteError(w, apperrors.New(apperrors.KindExternalDependency, "STORE_UNAVAILABLE",
				"Store unavailable", http.StatusServiceUnavailable, err))
			return
		}
	}
	respond(w, http.StatusOK, map[string]any{"status": "ok"})
}
