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
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/poker-services/configs"
	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/nats"
	"github.com/avvvet/poker-services/internal/socketsvc/broker"
	"github.com/avvvet/poker-services/internal/socketsvc/handlers"
	"github.com/avvvet/poker-services/internal/socketsvc/routes"
	"github.com/avvvet/poker-services/internal/socketsvc/ws"
	"github.com/avvvet/poker-services/internal/tablesvc/broadcast"
	tablebroker "github.com/avvvet/poker-services/internal/tablesvc/broker"
	tablecfg "github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
)

const SERVICE_NAME = "socket"

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
	if settings.StoreMode == tablecfg.StoreMemory {
		log.Fatal("socket service needs the shared postgres store")
	}

	// the broadcaster reads table state straight from the store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := store.New(ctx, settings)
	cancel()
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}
	defer st.Close()

	// Connect to NATS
	n, err := nats.Connect(SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	tableService := service.NewTableService(st, settings, service.WithPublisher(tablebroker.NewPublisher(n.Conn)))

	b := broker.NewBroker(n.Conn)
	s := ws.NewWs(b, settings.RequestTimeout)

	// table events published by the table services
	sub, err := b.Subscribe(comm.SubjectEvents, s.HandleEvent)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", comm.SubjectEvents, err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(settings.RateLimit, 1*time.Minute))

	port := os.Getenv("SOCKET_SERVICE_PORT")
	h := handlers.NewHandler(s, broadcast.NewBroadcaster(tableService, settings), port)
	routes.SetRoutes(r, h, auth.New(settings.JWTSecret))

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

	sub.Unsubscribe()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
