// routes/routes.go
package routes

import (
	"net/http"

	"go-storefront/controllers"
	"go-storefront/middleware"

	"github.com/gorilla/mux"
)

// Controllers groups every handler set the router serves
type Controllers struct {
	Orders     *controllers.OrderController
	Coupons    *controllers.CouponController
	Reviews    *controllers.ReviewController
	Categories *controllers.CategoryController
	Products   *controllers.ProductController
	Settings   *controllers.SettingsController
	Users      *controllers.UserController
	Health     *controllers.HealthController
}

// RegisterRoutes sets up all the routes for the application.
// uploadDir, when set, is served under /uploads/.
func RegisterRoutes(router *mux.Router, c Controllers, auth *middleware.Auth, limiter *middleware.RateLimiter, uploadDir string) {
	limited := func(h http.HandlerFunc) http.Handler { return limiter.Middleware(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(h) }
	customer := func(h http.HandlerFunc) http.Handler { return auth.CustomerAuth(h) }
	optional := func(h http.HandlerFunc) http.Handler { return auth.OptionalCustomer(h) }

	router.HandleFunc("/healthz", c.Health.Health).Methods(http.MethodGet)
	if uploadDir != "" {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}

	api := router.PathPrefix("/api").Subrouter()

	// Orders
	api.Handle("/orders", optional(c.Orders.CreateOrder)).Methods(http.MethodPost)
	api.Handle("/orders", admin(c.Orders.GetOrders)).Methods(http.MethodGet)
	api.Handle("/orders/user/{userId}", customer(c.Orders.GetUserOrders)).Methods(http.MethodGet)
	api.Handle("/orders/{id}", admin(c.Orders.GetOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id}/status", admin(c.Orders.UpdateOrderStatus)).Methods(http.MethodPut)
	api.Handle("/admin/orders/export", admin(c.Orders.ExportOrders)).Methods(http.MethodGet)
	api.Handle("/admin/orders/feed", admin(c.Orders.OrderFeed)).Methods(http.MethodGet)

	// Coupons
	api.Handle("/coupons/apply", limited(c.Coupons.ApplyCoupon)).Methods(http.MethodPost)
	api.Handle("/coupons", admin(c.Coupons.GetCoupons)).Methods(http.MethodGet)
	api.Handle("/coupons", admin(c.Coupons.CreateCoupon)).Methods(http.MethodPost)
	api.Handle("/coupons/{id}/toggle", admin(c.Coupons.ToggleCoupon)).Methods(http.MethodPatch)
	api.Handle("/coupons/{id}", admin(c.Coupons.DeleteCoupon)).Methods(http.MethodDelete)

	// Review links
	api.Handle("/review-tokens/verify", limited(c.Reviews.VerifyToken)).Methods(http.MethodGet)
	api.Handle("/review-tokens/submit", limiter.Middleware(auth.OptionalCustomer(http.HandlerFunc(c.Reviews.SubmitTokenReview)))).
		Methods(http.MethodPost)
	api.HandleFunc("/review-tokens/status", c.Reviews.TokenStatus).Methods(http.MethodGet)

	// Reviews
	api.Handle("/reviews/internal", customer(c.Reviews.SubmitInternalReview)).Methods(http.MethodPost)
	api.Handle("/reviews/verify", customer(c.Reviews.VerifyOwnedToken)).Methods(http.MethodGet)
	api.Handle("/reviews/reviewed", customer(c.Reviews.ReviewedProducts)).Methods(http.MethodGet)
	api.HandleFunc("/reviews/product/{productId}", c.Reviews.ProductReviews).Methods(http.MethodGet)
	api.Handle("/reviews", admin(c.Reviews.GetReviews)).Methods(http.MethodGet)
	api.Handle("/reviews/{id}/moderate", admin(c.Reviews.ModerateReview)).Methods(http.MethodPut)
	api.Handle("/reviews/{id}/reply", admin(c.Reviews.ReplyToReview)).Methods(http.MethodPut)

	// Categories
	api.HandleFunc("/categories", c.Categories.GetCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/views", c.Categories.CategoryViews).Methods(http.MethodGet)
	api.Handle("/categories/increment-view/{id}", optional(c.Categories.IncrementView)).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", c.Categories.GetCategory).Methods(http.MethodGet)
	api.Handle("/categories", admin(c.Categories.CreateCategory)).Methods(http.MethodPost)
	api.Handle("/categories/{id}", admin(c.Categories.UpdateCategory)).Methods(http.MethodPut)
	api.Handle("/categories/{id}", admin(c.Categories.DeleteCategory)).Methods(http.MethodDelete)

	// Products
	api.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/search", c.Products.SearchProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/featured", c.Products.FeaturedProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/category/{id}", c.Products.ProductsByCategory).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", c.Products.GetProduct).Methods(http.MethodGet)
	api.Handle("/products", admin(c.Products.CreateProduct)).Methods(http.MethodPost)
	api.Handle("/products/{id}", admin(c.Products.UpdateProduct)).Methods(http.MethodPut)
	api.Handle("/products/{id}", admin(c.Products.DeleteProduct)).Methods(http.MethodDelete)
	api.Handle("/products/{id}/featured", admin(c.Products.ToggleFeatured)).Methods(http.MethodPatch)
	api.Handle("/views/product", customer(c.Products.RecordProductView)).Methods(http.MethodPost)

	// Settings
	api.HandleFunc("/settings/delivery-charge", c.Settings.GetDeliveryCharge).Methods(http.MethodGet)
	api.Handle("/settings/delivery-charge", admin(c.Settings.SetDeliveryCharge)).Methods(http.MethodPut)

	// Accounts
	api.HandleFunc("/auth/save-user", c.Users.SaveUser).Methods(http.MethodPost)
	api.Handle("/admin/login", limited(c.Users.Login)).Methods(http.MethodPost)
	api.Handle("/admin/users", admin(c.Users.GetUsers)).Methods(http.MethodGet)
	api.Handle("/admin/send-bulk-email", admin(c.Users.SendBulkEmail)).Methods(http.MethodPost)
}
