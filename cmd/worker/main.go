package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/config"
	"github.com/medbook/booking-api/internal/gateway"
	"github.com/medbook/booking-api/internal/repository/postgres"
	"github.com/medbook/booking-api/internal/scheduler"
	"github.com/medbook/booking-api/internal/service/booking"
	"github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/messaging/redis"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/timeutil"
	"github.com/medbook/booking-api/pkg/worker"
)

// The worker runs the two background loops: the deferred-job runner
// that sends feedback messages after confirmed appointments, and the
// outbox processor that publishes lifecycle events to Redis.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("medbook", "worker")

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
	outboxRepo := postgres.NewOutboxRepository(db)

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

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	runner := scheduler.NewRunner(jobRepo, bookingSvc.SendFeedback, cfg.Scheduler.ToRunnerConfig(), appLogger, m)
	processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runner.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()

	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
	wg.Wait()
	log.Info().Msg("worker exited properly")
}
