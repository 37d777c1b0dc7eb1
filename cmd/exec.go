package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinebook/config"
	"cinebook/handlers"
	"cinebook/monitoring"
	"cinebook/security"
	"cinebook/services"
	"cinebook/utils"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	_ "cinebook/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	publisher := services.NewPubNubPublisher(pn)
	rooms := services.NewRoomService(publisher, pn)
	registry := services.NewLockRegistry()
	defer registry.Close()

	store := services.NewStore(app)
	reservations := services.NewReservationService(registry, rooms, store, cfg.SeatLockTTL)
	queueService := services.NewQueueService(redisClient, rooms, reservations, cfg)

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(app, reservations, rooms)
	seatHandler := handlers.NewSeatHandler(app, store, reservations, registry)
	bookingHandler := handlers.NewBookingHandler(app, store, reservations)
	queueHandler := handlers.NewQueueHandler(app, queueService)
	adminHandler := handlers.NewAdminHandler(app, store, registry, rooms, queueService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go rooms.ListenPresence(ctx)
	go queueService.SweepTimeouts(ctx)

	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(redisClient, registry, rooms)
		reservations.SetMetrics(monitor)
		go monitor.Collect(ctx)
		go startOpsServer(ctx, cfg, redisClient)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Room endpoints
		e.Router.POST("/api/v1/rooms/join", roomHandler.JoinRoom)
		e.Router.POST("/api/v1/rooms/leave", roomHandler.LeaveRoom)

		// Seat endpoints
		e.Router.GET("/api/v1/venues/{venueId}/seats", seatHandler.GetSeatMap)
		e.Router.POST("/api/v1/seats/lock-batch", seatHandler.LockSeats)
		e.Router.POST("/api/v1/seats/unlock-batch", seatHandler.UnlockSeats)

		// Booking endpoints
		e.Router.POST("/api/v1/booking/confirm", bookingHandler.ConfirmBooking)
		e.Router.POST("/api/v1/booking/completed", bookingHandler.CompleteSession)
		e.Router.POST("/api/v1/booking/{bookingId}/cancel", bookingHandler.CancelBooking)
		e.Router.GET("/api/v1/booking/history", bookingHandler.GetBookingHistory)

		// Queue endpoints
		e.Router.POST("/api/v1/queue/enter", queueHandler.EnterQueue)
		e.Router.GET("/api/v1/queue/{venueId}/position", queueHandler.GetQueuePosition)
		e.Router.POST("/api/v1/queue/leave", queueHandler.LeaveQueue)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/lock-dashboard", adminHandler.GetLockDashboard)
		e.Router.GET("/api/v1/admin/booking-stats", adminHandler.GetBookingStats)
		e.Router.GET("/api/v1/admin/queue/{venueId}/metrics", adminHandler.GetQueueMetrics)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// startOpsServer serves prometheus metrics and a liveness probe on a separate
// port, rate limited and with the metrics endpoint behind the admin token.
func startOpsServer(ctx context.Context, cfg *config.Config, redisClient *redis.Client) {
	e := echo.New()

	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)
	e.Use(limiter.OpsRateLimit())
	e.Use(limiter.AntiBotMiddleware())

	e.GET("/healthz", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()),
		security.AdminTokenMiddleware(cfg.AdminTokenHash))

	srv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: e,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Ops server listening on :%s", cfg.MetricsPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("ops server stopped", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
