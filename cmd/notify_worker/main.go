package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/config"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/mailer"
	mailtpl "github.com/oksasatya/go-adoptme/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-notify", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; notify worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQAdoptionQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	if err := mailer.CheckTemplates(); err != nil {
		logger.Fatalf("templates: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQAdoptionQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQAdoptionQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	notifier := &mailer.Notifier{
		Sender:  mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase),
		Options: []mailtpl.Option{mailtpl.WithAppName(cfg.AppName), mailtpl.WithSupportURL(cfg.SupportURL)},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, logger, notifier, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQAdoptionQueue).Info("notify worker listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func handle(ctx context.Context, logger logrus.FieldLogger, n *mailer.Notifier, msg amqp.Delivery) {
	entry := logger.WithFields(logrus.Fields{"event": msg.Type, "message_id": msg.MessageId})
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := n.Handle(c, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
		entry.Info("notification sent")
	case errors.Is(err, mailer.ErrDrop):
		entry.WithError(err).Warn("dropping message")
		_ = msg.Nack(false, false)
	default:
		entry.WithError(err).Error("send failed; requeueing")
		_ = msg.Nack(false, true)
	}
}
