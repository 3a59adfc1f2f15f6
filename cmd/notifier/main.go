// Command notifier drains the notification queue filled by the server when
// NOTIFIER=amqp and delivers each message through Firebase Cloud Messaging.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"favorx-backend-go/internal/config"
	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/notify"
	"favorx-backend-go/pkg/database"
	"favorx-backend-go/pkg/messagequeue"
)

func main() {
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancelInit := context.WithTimeout(ctx, 15*time.Second)
	clients, err := db.NewClients(initCtx, appConfig, zapLogger)
	cancelInit()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase clients", zap.Error(err))
	}
	defer clients.Close()

	store, err := database.NewFirestoreService(clients.Firestore, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore store", zap.Error(err))
	}
	users := db.NewUserRepository(db.NewBackend(store, zapLogger))

	queue, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.AMQPURL}, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer queue.Close()

	handler := notify.DeliveryHandler(notify.NewFCMNotifier(clients.Messaging, users, zapLogger), zapLogger)

	zapLogger.Info("Notifier worker started", zap.String("queue", appConfig.AMQPQueue))
	if err := queue.Consume(ctx, appConfig.AMQPQueue, handler); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("Consumer stopped", zap.Error(err))
	}
	zapLogger.Info("Notifier worker exiting.")
}
