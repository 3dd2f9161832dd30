package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/poker-services/configs"
	natscli "github.com/avvvet/poker-services/internal/nats"
	"github.com/avvvet/poker-services/internal/tablesvc/broker"
	tablecfg "github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
)

const SERVICE_NAME = "ctl"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// ctlsvc keeps tables moving when nobody is watching them: turn timeouts,
// next-hand starts and inactivity closes.
func main() {
	settings, err := tablecfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if settings.StoreMode == tablecfg.StoreMemory {
		log.Fatal("ctl service needs the shared postgres store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.New(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}
	defer st.Close()
	log.Printf("pg connection established successfully")

	n, err := natscli.Connect(SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	tableService := service.NewTableService(st, settings, service.WithPublisher(broker.NewPublisher(n.Conn)))

	ticker := time.NewTicker(settings.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("%s service stopped", SERVICE_NAME)
			return
		case <-ticker.C:
		}

		start := time.Now()
		count, err := tableService.Sweep(ctx)
		if err != nil {
			log.Errorf("sweep error: %v", err)
			continue
		}
		log.WithFields(log.Fields{"tables": count, "took": time.Since(start)}).Debug("sweep done")
	}
}
