package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/models"
	"go-storefront/realtime"
	"go-storefront/services"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orders   *services.OrderService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewOrderController(orders *services.OrderService, hub *realtime.Hub, log *logger.Logger) *OrderController {
	return &OrderController{
		orders: orders,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Admin auth already ran on the upgrade request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.WithComponent("order_controller"),
	}
}

// placeOrderRequest accepts the cart under "cart" or the older "items" key
type placeOrderRequest struct {
	UserID      string             `json:"userId"`
	UserDetails models.UserDetails `json:"userDetails" validate:"required"`
	Cart        []models.CartItem  `json:"cart" validate:"omitempty,dive"`
	Items       []models.CartItem  `json:"items" validate:"omitempty,dive"`
	CouponCode  string             `json:"couponCode"`
}

func (req placeOrderRequest) lines() []models.CartItem {
	if len(req.Cart) > 0 {
		return req.Cart
	}
	return req.Items
}

// CreateOrder handles checkout
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if uid := customerID(r); uid != "" {
		userID = uid
	}

	order, err := oc.orders.PlaceOrder(r.Context(), services.PlaceOrderInput{
		UserID:      userID,
		UserDetails: req.UserDetails,
		Cart:        req.lines(),
		CouponCode:  req.CouponCode,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"message": "Order placed", "order": order})
}

// GetOrders lists every order, newest first
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := oc.orders.ListOrders(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"orders": orders})
}

func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	order, err := oc.orders.GetOrder(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"order": order})
}

// GetUserOrders returns the signed-in customer's orders with their review tokens
func (oc *OrderController) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID != customerID(r) {
		utils.WriteError(w, apperrors.Forbidden(apperrors.CodeForbidden, "You can only view your own orders"))
		return
	}

	orders, err := oc.orders.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"orders": orders})
}

type statusRequest struct {
	Status       string `json:"status" validate:"required"`
	Comment      string `json:"comment"`
	AdminComment string `json:"adminComment"`
}

// UpdateOrderStatus moves an order to a new status
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	comment := req.Comment
	if comment == "" {
		comment = req.AdminComment
	}

	order, err := oc.orders.UpdateStatus(r.Context(), id, req.Status, comment)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "Order status updated", "order": order})
}

// ExportOrders streams every order as an xlsx workbook
func (oc *OrderController) ExportOrders(w http.ResponseWriter, r *http.Request) {
	file, err := oc.orders.ExportOrders(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="orders-%s.xlsx"`, time.Now().UTC().Format("2006-01-02")))
	if err := file.Write(w); err != nil {
		logger.FromContext(r.Context(), oc.log).Error("Failed to write order export", "error", err)
	}
}

// OrderFeed upgrades to a websocket that receives order events
func (oc *OrderController) OrderFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := oc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.FromContext(r.Context(), oc.log).Warn("Websocket upgrade failed", "error", err)
		return
	}
	oc.hub.Serve(conn)
}
