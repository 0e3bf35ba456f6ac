package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/adapter/notifier"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/config"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/event"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/kafka"
	"github.com/camilaepierce/BakerBelongingsBackend-sub001/internal/port"
)

// The mailer drains the reminders topic and delivers each one over SMTP.
// Running it separately keeps slow relay round trips away from the server's
// sweep loop.
func main() {
	godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS must be set for the mailer")
	}

	var sink port.NotificationSink
	if cfg.Notifier == "log" {
		sink = notifier.NewLogNotifier(logger)
	} else {
		sink = notifier.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.MailDomain)
	}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, event.TopicReminders, cfg.MailerWorkers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("mailer consuming", "topic", event.TopicReminders, "group", cfg.KafkaGroupID, "workers", cfg.MailerWorkers)

	err := consumer.Run(ctx, func(ctx context.Context, env event.Envelope) error {
		if env.EventType != event.TypeReminderDue {
			logger.Warn("ignoring unexpected event", "event_type", env.EventType, "event_id", env.EventID)
			return nil
		}
		var reminder event.ReminderPayload
		if err := event.DecodePayload(env, &reminder); err != nil {
			return err
		}
		if err := sink.Send(ctx, reminder.Kerb, reminder.Subject, reminder.Body); err != nil {
			return fmt.Errorf("deliver reminder to %s: %w", reminder.Kerb, err)
		}
		logger.Info("reminder delivered", "kerb", reminder.Kerb, "event_id", env.EventID)
		return nil
	})
	if err != nil {
		logger.Error("consumer stopped", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("mailer stopped")
}
