package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"go-storefront/auth"
	"go-storefront/controllers"
	"go-storefront/logger"
	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/realtime"
	"go-storefront/repository"
	"go-storefront/repository/memory"
	"go-storefront/services"
	"go-storefront/storage"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router     *mux.Router
	store      *repository.Store
	adminToken string
}

// customers maps bearer tokens to uids
var customers = map[string]string{"token-asha": "asha", "token-ravi": "ravi"}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := logger.Discard()
	store := memory.NewStore()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	runner := services.NewTaskRunner(log, time.Second)
	t.Cleanup(runner.Wait)

	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	verifier := auth.VerifierFunc(func(_ context.Context, bearer string) (auth.Identity, error) {
		if uid, ok := customers[bearer]; ok {
			return auth.Identity{UID: uid, Email: uid + "@example.com"}, nil
		}
		return auth.Identity{}, auth.ErrInvalidIdentity
	})

	notifier := services.NewNotifier(utils.NewLogMailer(log), store.Admins, "BLYNK-", log)
	coupons := services.NewCouponService(store.Coupons, log)
	tokens := services.NewReviewTokenService(store, "https://shop.example", log)
	orders := services.NewOrderService(store, coupons, tokens, notifier, hub, runner, log)
	reviews := services.NewReviewService(store, log)
	uploadDir := t.TempDir()
	products := services.NewProductService(store, storage.NewLocalUploader(uploadDir, "http://test"), log)
	categories := services.NewCategoryService(store, log)
	views := services.NewViewService(store, log)
	users := services.NewUserService(store.Users, notifier, runner, log)
	admins := services.NewAdminService(store.Admins, issuer, log)
	require.NoError(t, admins.EnsureSeedAdmin(ctx, "admin@example.com", "s3cret!"))

	router := mux.NewRouter()
	RegisterRoutes(router, Controllers{
		Orders:     controllers.NewOrderController(orders, hub, log),
		Coupons:    controllers.NewCouponController(coupons),
		Reviews:    controllers.NewReviewController(tokens, reviews, products),
		Categories: controllers.NewCategoryController(categories, products, views),
		Products:   controllers.NewProductController(products, views),
		Settings:   controllers.NewSettingsController(services.NewSettingsService(store.Settings)),
		Users:      controllers.NewUserController(users, admins),
		Health:     controllers.NewHealthController(store.Ping, log),
	}, middleware.NewAuth(issuer, verifier, log), middleware.NewRateLimiter(1000, 1000), uploadDir)
	router.Use(log.HTTPMiddleware)

	app := &testApp{router: router, store: store}
	rec := app.do(t, http.MethodPost, "/api/admin/login", "",
		map[string]any{"email": "admin@example.com", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	app.adminToken = decode(t, rec)["token"].(string)
	return app
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	return body["error"].(map[string]any)["code"].(string)
}

func (a *testApp) product(t *testing.T, name string, price float64, qty int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Quantity: qty}
	require.NoError(t, a.store.Products.Create(context.Background(), p))
	return p
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = app.do(t, http.MethodGet, "/api/orders", "token-asha", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "customer tokens are not admin tokens")

	rec = app.do(t, http.MethodGet, "/api/orders", app.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCouponApplyCarriesAutoRemove(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC()

	rec := app.do(t, http.MethodPost, "/api/coupons", app.adminToken, map[string]any{
		"code":            "save10",
		"discountPercent": 10,
		"minPrice":        1000,
		"startDate":       now.Add(-time.Hour),
		"endDate":         now.Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/coupons/apply", "", map[string]any{"code": "SAVE10", "cartTotal": 2000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 200.0, body["discount"])
	assert.Equal(t, 1800.0, body["subtotal"])

	rec = app.do(t, http.MethodPost, "/api/coupons/apply", "", map[string]any{"code": "SAVE10", "cartTotal": 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["autoRemove"])
	assert.Equal(t, "COUPON_BELOW_MINIMUM", body["error"].(map[string]any)["code"])

	rec = app.do(t, http.MethodPost, "/api/coupons/apply", "", map[string]any{"code": "NOPE", "cartTotal": 500})
	assert.Equal(t, true, decode(t, rec)["autoRemove"])
}

func TestOrderToReviewFlow(t *testing.T) {
	app := newTestApp(t)
	shirt := app.product(t, "Shirt", 1500, 3)

	// The legacy "items" key is accepted and the signed-in uid wins over the body.
	rec := app.do(t, http.MethodPost, "/api/orders", "token-asha", map[string]any{
		"userId":      "someone-else",
		"userDetails": map[string]any{"name": "Asha", "email": "asha@example.com"},
		"items":       []map[string]any{{"productId": shirt.ID.Hex(), "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]any)
	assert.Equal(t, "asha", order["userId"])
	orderID := order["id"].(string)

	stored, err := app.store.Products.GetByID(context.Background(), shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)

	for _, status := range []string{"approved", "dispatched", "delivered"} {
		rec = app.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", app.adminToken, map[string]any{"status": status})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = app.do(t, http.MethodPut, "/api/orders/"+orderID+"/status", app.adminToken, map[string]any{"status": "approved"})
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, rec))

	rec = app.do(t, http.MethodGet, "/api/orders/user/ravi", "token-asha", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/orders/user/asha", "token-asha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode(t, rec)["orders"].([]any)
	require.Len(t, orders, 1)
	tokens := orders[0].(map[string]any)["reviewTokens"].([]any)
	require.Len(t, tokens, 1)
	token := tokens[0].(map[string]any)["token"].(string)

	rec = app.do(t, http.MethodGet, "/api/review-tokens/verify?token="+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Shirt", decode(t, rec)["data"].(map[string]any)["productName"])

	submit := map[string]any{"token": token, "rating": 5, "comment": "Great fit"}
	rec = app.do(t, http.MethodPost, "/api/review-tokens/submit", "", submit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/review-tokens/submit", "", submit)
	assert.Equal(t, "TOKEN_ALREADY_USED", errorCode(t, rec))

	rec = app.do(t, http.MethodGet, "/api/review-tokens/status?userId=asha", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["reviewed"], 1)
}

func TestCreateProductMultipart(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Kurta"))
	require.NoError(t, mw.WriteField("price", "2500"))
	require.NoError(t, mw.WriteField("quantity", "4"))
	require.NoError(t, mw.WriteField("freeDelivery", "true"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="media"; filename="front.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+app.adminToken)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode(t, rec)["product"].(map[string]any)
	assert.Equal(t, "Kurta", product["name"])
	assert.Equal(t, true, product["freeDelivery"])
	media := product["media"].([]any)
	require.Len(t, media, 1)
	url := media[0].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "http://test/uploads/products/"), url)

	rec = app.do(t, http.MethodGet, strings.TrimPrefix(url, "http://test"), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestCategoryViewsCountOncePerVisitor(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/categories", app.adminToken, map[string]any{"name": "Women"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["category"].(map[string]any)["id"].(string)

	view := func(bearer string) bool {
		rec := app.do(t, http.MethodPut, "/api/categories/increment-view/"+id, bearer, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)["counted"].(bool)
	}
	assert.True(t, view(""))
	assert.False(t, view(""), "same IP")
	assert.True(t, view("token-asha"))
	assert.False(t, view("token-asha"))

	rec = app.do(t, http.MethodGet, "/api/categories/views", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode(t, rec)["categories"].([]any)
	require.Len(t, categories, 1)
	assert.Equal(t, 2.0, categories[0].(map[string]any)["views"])
}

func TestDeliveryChargeSettings(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPut, "/api/settings/delivery-charge", "", map[string]any{"deliveryCharge": 150})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPut, "/api/settings/delivery-charge", app.adminToken, map[string]any{"deliveryCharge": 150})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/settings/delivery-charge", "", nil)
	assert.Equal(t, 150.0, decode(t, rec)["deliveryCharge"])
}
