package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Artsadthavud/form-builder-sub000/internal/config"
	"github.com/Artsadthavud/form-builder-sub000/internal/database"
	"github.com/Artsadthavud/form-builder-sub000/internal/form"
	"github.com/Artsadthavud/form-builder-sub000/internal/mq"
	"github.com/Artsadthavud/form-builder-sub000/internal/response"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.Connect("worker", cfg.PostgresDSN)
	if err := db.AutoMigrate(&form.Form{}, &response.FormResponse{}, &response.ResponseSubmission{}); err != nil {
		log.Fatalf("worker: failed to run migrations: %v", err)
	}

	brokers := cfg.KafkaBrokerList()
	topic := strings.TrimSpace(cfg.KafkaTopic)
	group := cfg.ResolveKafkaGroup(fmt.Sprintf("%s-response-workers", cfg.ServiceName))
	if len(brokers) == 0 || topic == "" {
		log.Fatalf("worker: kafka brokers/topic must be configured (brokers=%v topic=%s)", brokers, topic)
	}

	store := response.NewSubmissionRepository(db)
	repo := response.NewGormRepository(db)
	forms := form.NewGormRepository(db)
	worker := response.NewQueueWorker(store, repo, forms)

	consumer, err := mq.NewConsumer(mq.Config{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		ClientID: fmt.Sprintf("%s-response-worker", cfg.ServiceName),
	}, worker.HandleMessage)
	if err != nil {
		log.Fatalf("worker: failed to create consumer: %v", err)
	}
	defer consumer.Close()

	log.Printf("worker consuming topic=%s group=%s", topic, group)

	if err := worker.RunConsumer(ctx, consumer); err != nil && err != context.Canceled {
		log.Fatalf("worker stopped: %v", err)
	}

	log.Println("worker stopped")
}
