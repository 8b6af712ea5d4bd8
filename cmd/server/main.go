package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Artsadthavud/form-builder-sub000/internal/config"
	"github.com/Artsadthavud/form-builder-sub000/internal/database"
	"github.com/Artsadthavud/form-builder-sub000/internal/engine"
	"github.com/Artsadthavud/form-builder-sub000/internal/form"
	"github.com/Artsadthavud/form-builder-sub000/internal/httpx"
	"github.com/Artsadthavud/form-builder-sub000/internal/mq"
	"github.com/Artsadthavud/form-builder-sub000/internal/observability"
	"github.com/Artsadthavud/form-builder-sub000/internal/otp"
	"github.com/Artsadthavud/form-builder-sub000/internal/response"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.Connect("server", cfg.PostgresDSN)
	if err := db.AutoMigrate(&form.Form{}, &response.FormResponse{}, &response.ResponseSubmission{}); err != nil {
		log.Fatalf("server: failed to run migrations: %v", err)
	}

	formRepo := form.NewGormRepository(db)
	responseRepo := response.NewGormRepository(db)
	submissionStore := response.NewSubmissionRepository(db)

	responseOpts := []response.HandlerOption{}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		producer, err := mq.NewProducer(mq.Config{
			Brokers:  brokers,
			Topic:    cfg.KafkaTopic,
			ClientID: cfg.ServiceName,
		})
		if err != nil {
			log.Fatalf("server: failed to create producer: %v", err)
		}
		defer producer.Close()

		coordinator := response.NewQueueCoordinator(submissionStore, producer)
		responseOpts = append(responseOpts, response.WithSubmissionCoordinator(coordinator))
	} else {
		log.Println("server: kafka not configured, async submissions disabled")
	}

	otpTimeout, err := time.ParseDuration(cfg.OTPTimeout)
	if err != nil {
		log.Fatalf("server: invalid OTP_TIMEOUT: %v", err)
	}
	otpManager := otp.NewManager(0)
	defer otpManager.Close()

	definitions := func(ctx context.Context, formID string) (*engine.Definition, error) {
		stored, err := formRepo.Find(ctx, formID)
		if err != nil {
			return nil, err
		}
		return stored.ParseDefinition()
	}

	server := httpx.New()
	observability.RegisterMetricsEndpoint(server.Engine)
	form.NewHandler(formRepo).Mount(server.Router, "")
	response.NewHandler(responseRepo, responseOpts...).Mount(server.Router, "")
	otp.NewHandler(definitions, otpManager, otp.NewClient(otpTimeout)).Mount(server.Router, "")

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Printf("server listening on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}

	log.Println("server stopped")
}
