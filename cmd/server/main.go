package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-ticketing/internal/catalog"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/mail"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/scheduling"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/taxrate"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	cfg := config.Load()
	logger := log.Default()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("db: migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.AMQPURL, mail.NewSender(config.LoadMailConfig(), logger), logger)
	consumer.AuditPath = cfg.AuditLog
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("consumer: stopped: %v", err)
		}
	}()
	publisher := queue.NewPublisher(cfg.AMQPURL, logger)

	var lookup taxrate.Lookup
	if cfg.TaxRate.URL != "" {
		hc, err := taxrate.NewHTTPClient(cfg.TaxRate.URL, cfg.TaxRate.APIKey, cfg.TaxRate.Timeout, logger)
		if err != nil {
			log.Fatalf("taxrate: %v", err)
		}
		lookup = taxrate.NewCachedLookup(hc, rdb, cfg.TaxRate.CacheTTL, logger)
	} else {
		log.Printf("taxrate: TAX_RATE_URL unset, bookings are taxed at 0")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	rooms := repository.NewShowroomRepo(db)
	tickets := repository.NewTicketRepo(db)
	cards := repository.NewCardRepo(db)
	promos := repository.NewPromotionRepo(db)
	prices := repository.NewPriceRepo(db)

	if err := ensureAdmin(ctx, users, cfg); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	promoSvc := service.NewPromotionService(promos, users, publisher, logger)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		Showtimes: rooms,
		Movies:    movies,
		Prices:    prices,
		Cards:     cards,
		Users:     users,
		Tickets:   tickets,
		Promos:    promoSvc,
		Tax:       taxrate.NewResolver(lookup, logger),
		Events:    publisher,
	}, logger)
	showtimeSvc := service.NewShowtimeService(rooms, movies, scheduling.NewPolicy(cfg.ScheduleBuffer))
	profileSvc := service.NewProfileService(users, tickets, cards, publisher, cfg.RefundWindow, cfg.BcryptCost, logger)

	health := &handler.HealthHandler{DB: db}
	if rdb != nil {
		health.RedisUp = func(ctx context.Context) bool { return rdb.Ping(ctx).Err() == nil }
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	router.Register(e, router.Handlers{
		Health:     health,
		Auth:       handler.NewAuthHandler(cfg, users, tokens, publisher),
		Movies:     handler.NewMovieHandler(movies, rooms, catalog.ParsePolicy(cfg.CatalogPolicy)),
		Showrooms:  handler.NewShowroomHandler(rooms, showtimeSvc),
		Bookings:   handler.NewBookingHandler(bookingSvc),
		Profile:    handler.NewProfileHandler(users, cards, tickets, profileSvc),
		Promotions: handler.NewPromotionHandler(promos, promoSvc),
		Prices:     handler.NewPriceHandler(prices),
		AdminUsers: handler.NewAdminUserHandler(users, tokens, cfg.BcryptCost),
	}, router.Options{
		JWTSecret:     cfg.JWTSecret,
		Redis:         rdb,
		Cache:         config.LoadCacheConfig(),
		RateLimit:     config.LoadRateLimitConfig(),
		AuthRateLimit: config.LoadAuthRateLimitConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// ensureAdmin creates the ADMIN_EMAIL account when it does not exist yet.
func ensureAdmin(ctx context.Context, users *repository.UserRepo, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	id, err := users.Create(ctx, repository.NewUser{
		Email:         cfg.AdminEmail,
		Name:          "Administrator",
		Password:      cfg.AdminPassword,
		Role:          model.RoleAdmin,
		Status:        model.StatusActive,
		EmailVerified: true,
	}, cfg.BcryptCost)
	if err != nil {
		return err
	}
	log.Printf("bootstrap: created admin %s (id=%d)", cfg.AdminEmail, id)
	return nil
}

func logLevel(s string) glog.Lvl {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return glog.DEBUG
	case "WARN":
		return glog.WARN
	case "ERROR":
		return glog.ERROR
	case "OFF":
		return glog.OFF
	}
	return glog.INFO
}
