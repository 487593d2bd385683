package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roadrescue/internal/service/adapter/in/in_ws"
	"roadrescue/internal/service/adapter/in/transport"
	"roadrescue/internal/service/adapter/out/out_amqp"
	"roadrescue/internal/service/adapter/out/out_ws"
	svcrepo "roadrescue/internal/service/adapter/out/repo"
	"roadrescue/internal/service/application/ports/out"
	"roadrescue/internal/service/application/usecase"
	"roadrescue/internal/shared/auth"
	"roadrescue/internal/shared/config"
	db_conn "roadrescue/internal/shared/db"
	"roadrescue/internal/shared/logger"
	"roadrescue/internal/shared/mq"
	"roadrescue/internal/shared/ws"
	techtransport "roadrescue/internal/technician/adapter/in/transport"
	techrepo "roadrescue/internal/technician/adapter/out/repo"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Run собирает все зависимости и запускает HTTP сервер.
// Блокируется до отмены ctx, затем завершает сервер gracefully.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	pool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db_conn.Close(pool, log)

	if err := db_conn.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	rabbit, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer rabbit.Close()

	if err := mq.SetupTopology(rabbit, log); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	hub := ws.NewHub(jwtService.ExtractUserID, log)
	go hub.Run(ctx)

	// out-адаптеры
	technicianRepo := techrepo.NewTechnicianPgRepository(pool, log)
	serviceRepo := svcrepo.NewServicePgRepository(pool, log)
	trackingRepo := svcrepo.NewTrackingPgRepository(pool, log)
	publisher := out_amqp.NewServiceEventPublisher(rabbit, log)
	notifier := out_ws.NewServiceNotifier(hub)

	// use case-ы движка
	createSvc := usecase.NewCreateServiceService(
		serviceRepo, trackingRepo, technicianRepo, publisher, notifier, log,
		cfg.Assignment.StrictReserve,
	)
	selfAssignSvc := usecase.NewSelfAssignService(serviceRepo, trackingRepo, technicianRepo, publisher, notifier, log)
	transitionSvc := usecase.NewTransitionStatusService(serviceRepo, trackingRepo, technicianRepo, publisher, notifier, log)
	rateSvc := usecase.NewRateServiceService(serviceRepo, technicianRepo, log)
	querySvc := usecase.NewServiceQueryService(serviceRepo, technicianRepo)
	trackingSvc := usecase.NewUpdateTrackingService(serviceRepo, trackingRepo, technicianRepo, publisher, notifier, log)
	trackViewSvc := usecase.NewGetTrackingService(serviceRepo, trackingRepo, technicianRepo, log)

	// WebSocket команды идут в те же use case-ы
	in_ws.NewSocketHandler(hub, trackingSvc, transitionSvc, log).Register()

	// назначенный техник получает персональное push-уведомление,
	// даже если не подписан на комнату заявки
	if err := consumeAssignments(ctx, rabbit, hub, log); err != nil {
		return fmt.Errorf("assignment consumer: %w", err)
	}

	mux := http.NewServeMux()
	mw := transport.NewMiddleware(jwtService, log)

	serviceHandler := transport.NewHTTPHandler(
		createSvc, selfAssignSvc, transitionSvc, rateSvc, querySvc, trackingSvc, trackViewSvc, log,
	)
	serviceHandler.RegisterRoutes(mux, mw)

	technicianHandler := techtransport.NewHTTPHandler(technicianRepo, log)
	technicianHandler.RegisterRoutes(mux, mw.TechnicianOnly)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /ws", hub.ServeWS)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(logger.Entry{
			Action:  "server_started",
			Message: fmt.Sprintf("listening on %s", server.Addr),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(logger.Entry{Action: "server_stopped", Message: "graceful shutdown complete"})
	return nil
}

// consumeAssignments слушает service.assigned и шлет назначенному технику
// персональное сообщение через хаб
func consumeAssignments(ctx context.Context, rabbit *mq.RabbitMQ, hub *ws.Hub, log *logger.Logger) error {
	return rabbit.Consume(ctx, mq.QueueServiceAssigned, "roadrescue-api", func(msg amqp.Delivery) {
		var event struct {
			EventType string               `json:"event_type"`
			Data      out.ServiceEventData `json:"data"`
		}
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Error(logger.Entry{
				Action:  "assignment_event_malformed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			_ = msg.Nack(false, false)
			return
		}

		if event.Data.TechnicianID != "" {
			_ = hub.SendToUserJSON(event.Data.TechnicianID, map[string]string{
				"type":      "service:assigned",
				"serviceId": event.Data.ServiceID,
			})
		}
		_ = msg.Ack(false)
	})
}
