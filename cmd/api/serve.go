package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/flicky/go-food-api/internal/config"
	"github.com/flicky/go-food-api/internal/handler"
	"github.com/flicky/go-food-api/internal/mail"
	"github.com/flicky/go-food-api/internal/media"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
	"github.com/flicky/go-food-api/internal/service"
	"github.com/flicky/go-food-api/internal/worker"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the order back-reference worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func newMediaStore(cfg config.MediaConfig, log *slog.Logger) (media.Store, error) {
	if cfg.UseDisk() {
		log.Warn("CLOUDINARY_URL not set, storing media on local disk", "root", cfg.Root)
		return media.NewDiskStore(cfg.Root, cfg.BaseURL), nil
	}
	store, err := media.NewCloudinaryStore(cfg.CloudinaryURL, cfg.Folder)
	if err != nil {
		return nil, err
	}
	log.Info("storing media on Cloudinary", "folder", cfg.Folder)
	return store, nil
}

func serve(parent context.Context, cfg *config.Config, log *slog.Logger, migrate bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// PostgreSQL
	dbPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	if migrate {
		if err := repository.Migrate(ctx, dbPool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema applied")
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer amqpConn.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer publishCh.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		return fmt.Errorf("setup RabbitMQ: %w", err)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	restRepo := repository.NewRestaurantRepository(dbPool)
	itemRepo := repository.NewItemRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)

	// Collaborators
	mediaStore, err := newMediaStore(cfg.Media, log)
	if err != nil {
		return err
	}
	mailer, err := mail.NewSMTPSender(mail.Config{
		Host: cfg.Mail.Host, Port: cfg.Mail.Port, Username: cfg.Mail.Username, Password: cfg.Mail.Password,
		From: cfg.Mail.From, RequireTLS: cfg.Mail.RequireTLS, Timeout: cfg.Mail.Timeout,
	})
	if err != nil {
		return err
	}
	publisher := worker.NewPublisher(publishCh)

	// Services
	authSvc := service.NewAuthService(
		userRepo, restRepo, service.NewRedisOTPStore(redisClient), mailer,
		cfg.JWT.Secret, cfg.JWT.Expiration, cfg.OTP.TTL, cfg.OTP.Length,
	)
	userSvc := service.NewUserService(userRepo, orderRepo)
	cartSvc := service.NewCartService(userRepo, itemRepo)
	catalogSvc := service.NewCatalogService(itemRepo, restRepo, mediaStore, redisClient, log)
	orderSvc := service.NewOrderService(orderRepo, userRepo, itemRepo, restRepo, publisher, log)
	reviewSvc := service.NewReviewService(reviewRepo, orderRepo, restRepo, log)
	restSvc := service.NewRestaurantService(restRepo, orderRepo, itemRepo, reviewRepo)

	// Handlers
	h := handlers{
		auth:       handler.NewAuthHandler(authSvc, cfg.JWT.CookieName, cfg.JWT.Secure),
		user:       handler.NewUserHandler(userSvc),
		cart:       handler.NewCartHandler(cartSvc, orderSvc),
		restaurant: handler.NewRestaurantHandler(restSvc, orderSvc),
		item:       handler.NewItemHandler(catalogSvc, cfg.Server.MaxUploadBytes),
		order:      handler.NewOrderHandler(orderSvc),
		review:     handler.NewReviewHandler(reviewSvc),
		health:     handler.NewHealthHandler(dbPool, redisClient, amqpConn),
	}

	// Worker
	backrefWorker := worker.NewBackrefWorker(
		consumeCh, orderRepo, userRepo, restRepo, worker.NewRedisIdempotencyStore(redisClient), log,
	)
	if err := backrefWorker.Start(ctx); err != nil {
		return fmt.Errorf("start backref worker: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-serverErr:
		backrefWorker.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	backrefWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
	return nil
}

type handlers struct {
	auth       *handler.AuthHandler
	user       *handler.UserHandler
	cart       *handler.CartHandler
	restaurant *handler.RestaurantHandler
	item       *handler.ItemHandler
	order      *handler.OrderHandler
	review     *handler.ReviewHandler
	health     *handler.HealthHandler
}

func newRouter(cfg *config.Config, log *slog.Logger, h handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg.Server.AllowedOrigins))
	router.MaxMultipartMemory = 8 << 20

	router.GET("/healthz", h.health.Healthz)
	router.GET("/readyz", h.health.Readyz)
	if cfg.Media.UseDisk() {
		router.Static("/media", cfg.Media.Root)
	}

	authed := middleware.Auth(cfg.JWT.Secret, cfg.JWT.CookieName)
	customer := middleware.RequireRole(model.RoleCustomer)
	restaurant := middleware.RequireRole(model.RoleRestaurant)

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		users.POST("/register", h.auth.RegisterUser)
		users.POST("/login", h.auth.LoginUser)

		me := users.Group("", authed, customer)
		me.GET("/profile", h.user.Profile)
		me.GET("/dashboard", h.user.Dashboard)
		me.GET("/saved-items", h.cart.ListSaved)
		me.POST("/saved-items/:id", h.cart.SaveItem)
		me.DELETE("/saved-items/:id", h.cart.UnsaveItem)
		me.POST("/saved-items/:id/order", h.cart.OrderSavedItem)
		me.GET("/cart", h.cart.GetCart)
		me.POST("/cart/:id", h.cart.AddItem)
		me.PUT("/cart/:id", h.cart.UpdateItem)
		me.DELETE("/cart/:id", h.cart.RemoveItem)
		me.POST("/checkout", h.cart.Checkout)

		rests := v1.Group("/restaurants")
		rests.POST("/register", h.auth.RegisterRestaurant)
		rests.POST("/login", h.auth.LoginRestaurant)
		rests.POST("/otp", h.auth.SendOTP)
		rests.POST("/otp/verify", h.auth.VerifyOTP)
		rests.POST("/:id/password", h.auth.ResetPassword)

		owner := rests.Group("", authed, restaurant)
		owner.GET("/profile", h.restaurant.Profile)
		owner.PUT("/profile", h.restaurant.UpdateProfile)
		owner.PATCH("/status", h.restaurant.UpdateStatus)
		owner.GET("/orders", h.restaurant.Orders)
		owner.GET("/analytics", h.restaurant.Analytics)

		rests.GET("", authed, h.restaurant.List)
		rests.GET("/:id", authed, h.restaurant.GetByID)

		items := v1.Group("/items")
		items.GET("", h.item.List)
		items.GET("/:id", h.item.GetByID)
		menu := items.Group("", authed, restaurant)
		menu.POST("", h.item.Create)
		menu.PUT("/:id", h.item.Update)
		menu.DELETE("/:id", h.item.Delete)

		orders := v1.Group("/orders", authed)
		orders.POST("", customer, h.order.Place)
		orders.GET("", customer, h.order.List)
		orders.GET("/:id", customer, h.order.Get)
		orders.GET("/:id/status", customer, h.order.Status)
		orders.DELETE("/:id", customer, h.order.Delete)
		orders.DELETE("/:id/items/:itemId", customer, h.order.RemoveItem)
		orders.PATCH("/:id/status", middleware.RequireRole(model.RoleRestaurant, model.RoleAdmin), h.order.UpdateStatus)

		reviews := v1.Group("/reviews", authed)
		reviews.POST("", customer, h.review.Add)
		reviews.GET("/restaurant/:id", h.review.ListByRestaurant)
		reviews.GET("/:id", h.review.Get)
		reviews.DELETE("/:id", customer, h.review.Delete)
	}

	return router
}
