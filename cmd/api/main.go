package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medbook/booking-api/config"
	"github.com/medbook/booking-api/internal/gateway"
	bookingHandler "github.com/medbook/booking-api/internal/handler/booking"
	"github.com/medbook/booking-api/internal/handler/health"
	webhookHandler "github.com/medbook/booking-api/internal/handler/webhook"
	"github.com/medbook/booking-api/internal/repository/postgres"
	"github.com/medbook/booking-api/internal/router"
	"github.com/medbook/booking-api/internal/scheduler"
	"github.com/medbook/booking-api/internal/service/booking"
	"github.com/medbook/booking-api/internal/service/delivery"
	"github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/timeutil"
	"github.com/medbook/booking-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("medbook", "booking")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	clock, err := timeutil.NewClock(cfg.Booking.ClinicUTCOffset)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clinic UTC offset")
	}

	timeslotRepo := postgres.NewTimeslotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	whatsapp, err := gateway.NewWhatsAppGateway(cfg.WhatsApp.ToGatewayConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize whatsapp gateway")
	}

	var email gateway.Gateway
	if cfg.Email.Host != "" {
		email, err = gateway.NewEmailGateway(cfg.Email.ToGatewayConfig(), &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize email gateway")
		}
	}

	notifier := notification.NewService(doctorRepo, messageRepo, whatsapp, email, appLogger, m)
	sched := scheduler.New(jobRepo, m)

	bookingSvc := booking.NewService(
		timeslotRepo,
		appointmentRepo,
		patientRepo,
		doctorRepo,
		notifier,
		sched,
		clock,
		booking.Config{
			FeedbackOffset: cfg.Booking.FeedbackOffset,
			StoreTimeout:   cfg.Booking.StoreTimeout,
		},
		appLogger,
		m,
	)
	deliverySvc := delivery.NewService(messageRepo, notifier, appLogger)

	bookingH := bookingHandler.NewHandler(bookingSvc, validator.New())
	webhookH := webhookHandler.NewHandler(bookingSvc, deliverySvc, appLogger)
	healthH := health.NewHandler(db)

	r := router.NewRouter(bookingH, webhookH, healthH, router.Config{
		RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:      cfg.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
