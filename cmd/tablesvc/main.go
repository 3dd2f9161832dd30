package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/poker-services/configs"
	"github.com/avvvet/poker-services/internal/comm"
	nats "github.com/avvvet/poker-services/internal/nats"
	"github.com/avvvet/poker-services/internal/tablesvc/broker"
	tablecfg "github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/handlers"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "table"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	settings, err := tablecfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := store.New(ctx, settings)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}
	defer st.Close()
	log.Infof("table store ready (%s)", settings.StoreMode)

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	tableService := service.NewTableService(st, settings, service.WithPublisher(broker.NewPublisher(n.Conn)))

	// actions forwarded by socket services; one handler per request across instances
	b := broker.NewBroker(n.Conn, tableService)
	sub, err := b.QueueSubscribe(comm.SubjectAction, SERVICE_NAME+"-service")
	if err != nil {
		log.Fatalf("Error: unable to subscribe to queue %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(settings.RateLimit, 1*time.Minute))

	port := os.Getenv("TABLE_SERVICE_PORT")
	h := handlers.NewHandler(tableService, port)
	h.InitAuth(settings.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Drain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
