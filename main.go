// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-storefront/auth"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/logger"
	"go-storefront/middleware"
	"go-storefront/realtime"
	"go-storefront/repository"
	"go-storefront/repository/memory"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/storage"
	"go-storefront/utils"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      cfg.LogOutput,
		Component:   "storefront",
		Environment: cfg.Environment,
	})
	defer log.Close()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	mailer, err := utils.NewMailer(cfg.EmailProvider, cfg.PostmarkAPIToken, cfg.SendGridAPIKey, cfg.EmailSender, log)
	if err != nil {
		return err
	}

	uploader, serveDir, closeUploader, err := openUploader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeUploader()

	verifier := newVerifier(ctx, cfg, log)
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	// Side effects get their own deadline, detached from the request.
	runner := services.NewTaskRunner(log, 30*time.Second)
	defer runner.Wait()

	notifier := services.NewNotifier(mailer, store.Admins, cfg.OrderIDPrefix, log)
	coupons := services.NewCouponService(store.Coupons, log)
	tokens := services.NewReviewTokenService(store, cfg.StorefrontURL, log)
	orders := services.NewOrderService(store, coupons, tokens, notifier, hub, runner, log)
	reviews := services.NewReviewService(store, log)
	products := services.NewProductService(store, uploader, log)
	categories := services.NewCategoryService(store, log)
	views := services.NewViewService(store, log)
	settings := services.NewSettingsService(store.Settings)
	users := services.NewUserService(store.Users, notifier, runner, log)
	admins := services.NewAdminService(store.Admins, issuer, log)

	if err := admins.EnsureSeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Controllers{
		Orders:     controllers.NewOrderController(orders, hub, log),
		Coupons:    controllers.NewCouponController(coupons),
		Reviews:    controllers.NewReviewController(tokens, reviews, products),
		Categories: controllers.NewCategoryController(categories, products, views),
		Products:   controllers.NewProductController(products, views),
		Settings:   controllers.NewSettingsController(settings),
		Users:      controllers.NewUserController(users, admins),
		Health:     controllers.NewHealthController(store.Ping, log),
	}, middleware.NewAuth(issuer, verifier, log), limiter, serveDir)
	router.Use(log.HTTPMiddleware)

	handler := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)(router)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(cfg.IsDevelopment()))(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured document store
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repository.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	client, err := utils.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("ensuring indexes: %w", err)
	}
	log.Info("Connected to MongoDB", "database", cfg.MongoDB)
	return repository.NewMongoStore(db), closeFn, nil
}

// openUploader picks GCS when a bucket is configured, local disk otherwise.
// The returned dir is non-empty when uploads must be served by this process.
func openUploader(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Uploader, string, func(), error) {
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, "", nil, err
		}
		return gcs, "", func() {
			if err := gcs.Close(); err != nil {
				log.Error("Failed to close storage client", "error", err)
			}
		}, nil
	}

	local := storage.NewLocalUploader(cfg.UploadDir, cfg.PublicBaseURL)
	log.Info("Storing uploads on local disk", "dir", local.Dir())
	return local, local.Dir(), func() {}, nil
}

// newVerifier uses Firebase when configured. Without it customer-only routes reject every request.
func newVerifier(ctx context.Context, cfg *config.Config, log *logger.Logger) auth.Verifier {
	if cfg.FirebaseProjectID != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err == nil {
			return verifier
		}
		log.Error("Firebase unavailable; customer sign-in disabled", "error", err)
	} else {
		log.Warn("FIREBASE_PROJECT_ID not set; customer sign-in disabled")
	}
	return auth.VerifierFunc(func(context.Context, string) (auth.Identity, error) {
		return auth.Identity{}, auth.ErrInvalidIdentity
	})
}
