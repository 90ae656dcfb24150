package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/linemk/farm-shop/internal/app"
	"github.com/linemk/farm-shop/internal/app/handlers"
	"github.com/linemk/farm-shop/internal/config"
	"github.com/linemk/farm-shop/internal/documents"
	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/linemk/farm-shop/internal/domain/pricing"
	"github.com/linemk/farm-shop/internal/events"
	"github.com/linemk/farm-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/farm-shop/internal/lib/logger"
	"github.com/linemk/farm-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/farm-shop/internal/lib/ratelimit"
	"github.com/linemk/farm-shop/internal/service"
	"github.com/linemk/farm-shop/internal/storage"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
)

func main() {
	// .env нужен только локально, в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// цены и суммы отдаются витрине числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	// реализация слоев по работе с БД по каждому направлению
	db := application.DB
	userRepo := storage.NewUserRepository(db)
	productRepo := storage.NewProductRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	outboxRepo := storage.NewOutboxRepository(db)
	subRepo := storage.NewSubscriptionRepository(db)
	tourRepo := storage.NewTourRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	reviewRepo := storage.NewReviewRepository(db)
	blogRepo := storage.NewBlogRepository(db)
	supplierRepo := storage.NewSupplierRepository(db)

	rule := pricing.NewRule(cfg.Shop.FreeShippingThreshold, cfg.Shop.FlatShippingCost)
	tickets := documents.NewTicketRenderer(cfg.Shop.TicketSecret)

	authService := service.NewAuthService(log, userRepo, cfg.JWT.Secret, cfg.JWT.TokenDuration(), cfg.JWT.ResetDuration())
	userService := service.NewUserService(log, userRepo)
	catalogService := service.NewCatalogService(log, productRepo, application.ProductCache)
	cartService := service.NewCartService(log, db, orderRepo, productRepo, rule)
	checkoutService := service.NewCheckoutService(log, db, orderRepo, productRepo, outboxRepo, application.ProductCache, rule)
	orderService := service.NewOrderService(log, db, orderRepo, productRepo, outboxRepo, application.ProductCache)
	subscriptionService := service.NewSubscriptionService(log, subRepo)
	tourService := service.NewTourService(log, db, tourRepo, bookingRepo, reviewRepo, userRepo, outboxRepo, tickets)
	blogService := service.NewBlogService(log, blogRepo)
	supplierService := service.NewSupplierService(log, supplierRepo)
	reportService := service.NewReportService(log, orderRepo, productRepo)

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Error("failed to bootstrap admin", slog.Any("error", err))
	}

	// публикация событий из outbox в Kafka
	if cfg.Kafka.Enabled {
		writer := events.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		poller := events.NewOutboxPoller(log, outboxRepo, writer, events.Options{
			Interval:  cfg.Kafka.PollInterval,
			BatchSize: cfg.Kafka.BatchSize,
		})
		go poller.Run(ctx)
		log.Info("outbox poller started", slog.String("topic", cfg.Kafka.Topic), slog.Any("brokers", cfg.Kafka.Brokers))
	}

	cookie := handlers.CartCookie{
		Name:   cfg.Shop.CartCookieName,
		TTL:    cfg.Shop.CartCookieTTL,
		Secure: cfg.Env == logger.EnvProd,
	}
	authHandlers := handlers.AuthHandlers{
		Log:      log,
		Auth:     authService,
		Cart:     cartService,
		Cookie:   cookie,
		TokenTTL: cfg.JWT.TokenDuration(),
	}
	cartHandlers := handlers.CartHandlers{
		Log:      log,
		Cart:     cartService,
		Checkout: checkoutService,
		Cookie:   cookie,
	}

	jwtMW := jwtmiddleware.NewJWTMiddleware(cfg.JWT.Secret)
	optionalJWT := jwtmiddleware.NewOptionalJWTMiddleware(cfg.JWT.Secret)
	staffOnly := jwtmiddleware.RequireRole(models.RoleAdmin, models.RoleEmployee)
	adminOnly := jwtmiddleware.RequireRole(models.RoleAdmin)
	limiter := ratelimit.New(log, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTPServer.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	router.Route("/api", func(r chi.Router) {
		// вход и регистрация
		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/register", authHandlers.Register())
			r.With(limiter.Middleware).Post("/login", authHandlers.Login())
			r.Post("/logout", authHandlers.Logout())
			r.With(limiter.Middleware).Post("/reset-password", authHandlers.ResetPassword())
			r.Post("/new-password", authHandlers.NewPassword())
		})

		// корзина доступна и гостю, изменения позиций - только после входа
		r.Route("/cart", func(r chi.Router) {
			r.With(optionalJWT).Get("/", cartHandlers.Get())
			r.With(optionalJWT).Post("/", cartHandlers.Sync())
			r.Group(func(r chi.Router) {
				r.Use(jwtMW)
				r.Delete("/", cartHandlers.Clear())
				r.Post("/merge", cartHandlers.Merge())
				r.Post("/items", cartHandlers.AddItem())
				r.Put("/items", cartHandlers.UpdateItem())
				r.Delete("/items", cartHandlers.RemoveItem())
				r.Post("/checkout", cartHandlers.PlaceOrder())
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(jwtMW)
			r.Get("/", handlers.ListMyOrdersHandler(log, orderService))
			r.Get("/{id}", handlers.GetOrderHandler(log, orderService))
			r.With(staffOnly).Patch("/{id}/status", handlers.UpdateOrderStatusHandler(log, orderService))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.ListProductsHandler(log, catalogService))
			r.Get("/categories", handlers.ProductCategoriesHandler(log, catalogService))
			r.Get("/{id}", handlers.GetProductHandler(log, catalogService))
			r.Group(func(r chi.Router) {
				r.Use(jwtMW, staffOnly)
				r.Post("/", handlers.CreateProductHandler(log, catalogService))
				r.Put("/", handlers.UpdateProductHandler(log, catalogService))
				r.Put("/{id}", handlers.UpdateProductHandler(log, catalogService))
				r.Delete("/", handlers.DeleteProductHandler(log, catalogService))
				r.Delete("/{id}", handlers.DeleteProductHandler(log, catalogService))
			})
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(jwtMW)
			r.With(staffOnly).Get("/", handlers.ListSubscriptionsHandler(log, subscriptionService))
			r.Post("/", handlers.CreateSubscriptionHandler(log, subscriptionService))
			r.Get("/user", handlers.ListMySubscriptionsHandler(log, subscriptionService))
			r.Get("/{id}", handlers.GetSubscriptionHandler(log, subscriptionService))
			r.Put("/{id}", handlers.UpdateSubscriptionHandler(log, subscriptionService))
			r.Delete("/{id}", handlers.DeleteSubscriptionHandler(log, subscriptionService))
			r.With(staffOnly).Post("/{id}/renew", handlers.RenewSubscriptionHandler(log, subscriptionService))
		})

		r.Route("/tours-disponibles", func(r chi.Router) {
			r.Get("/", handlers.ListToursHandler(log, tourService))
			r.Get("/{id}", handlers.GetTourHandler(log, tourService))
			r.Get("/{id}/reviews", handlers.ListReviewsHandler(log, tourService))
			r.Group(func(r chi.Router) {
				r.Use(jwtMW)
				r.Post("/register", handlers.RegisterTourHandler(log, tourService))
				r.Get("/user", handlers.ListMyBookingsHandler(log, tourService))
				r.Put("/user", handlers.UpdateBookingStatusHandler(log, tourService))
				r.Get("/bookings/{id}/ticket", handlers.TicketHandler(log, tourService))
				r.Post("/{id}/reviews", handlers.CreateReviewHandler(log, tourService))
			})
			r.Group(func(r chi.Router) {
				r.Use(jwtMW, staffOnly)
				r.Post("/", handlers.CreateTourHandler(log, tourService))
				r.Put("/{id}", handlers.UpdateTourHandler(log, tourService))
				r.Delete("/{id}", handlers.DeleteTourHandler(log, tourService))
			})
		})

		// черновики видит только персонал, поэтому чтение идёт с необязательным токеном
		r.Route("/blog", func(r chi.Router) {
			r.With(optionalJWT).Get("/", handlers.ListPostsHandler(log, blogService))
			r.Get("/categories", handlers.PostCategoriesHandler(log, blogService))
			r.With(optionalJWT).Get("/{id}", handlers.GetPostHandler(log, blogService))
			r.Group(func(r chi.Router) {
				r.Use(jwtMW, staffOnly)
				r.Post("/", handlers.CreatePostHandler(log, blogService))
				r.Put("/{id}", handlers.UpdatePostHandler(log, blogService))
				r.Delete("/{id}", handlers.DeletePostHandler(log, blogService))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Use(jwtMW, staffOnly)
			r.Get("/", handlers.ListSuppliersHandler(log, supplierService))
			r.Post("/", handlers.CreateSupplierHandler(log, supplierService))
			r.Get("/{id}", handlers.GetSupplierHandler(log, supplierService))
			r.Put("/{id}", handlers.UpdateSupplierHandler(log, supplierService))
			r.Delete("/{id}", handlers.DeleteSupplierHandler(log, supplierService))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(jwtMW)
			r.Get("/profile", handlers.GetProfileHandler(log, userService))
			r.Put("/profile", handlers.UpdateProfileHandler(log, userService))
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", handlers.ListUsersHandler(log, userService))
				r.Post("/", handlers.CreateUserHandler(log, userService))
				r.Get("/{id}", handlers.GetUserHandler(log, userService))
				r.Put("/{id}", handlers.UpdateUserHandler(log, userService))
				r.Delete("/{id}", handlers.DeleteUserHandler(log, userService))
			})
		})

		// панель персонала
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtMW, staffOnly)
			r.Get("/orders", handlers.ListOrdersHandler(log, orderService))
			r.Get("/tours", handlers.ListAllToursHandler(log, tourService))
			r.Post("/tickets/verify", handlers.VerifyTicketHandler(log, tickets))
			r.Get("/reports/sales", handlers.SalesReportHandler(log, reportService))
			r.Get("/reports/inventory", handlers.InventoryReportHandler(log, reportService))
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	stopBackground()
	log.Info("server gracefully stopped")
}
