package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/poker-services/configs"
	"github.com/avvvet/poker-services/internal/archive"
	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/db"
	natscli "github.com/avvvet/poker-services/internal/nats"
	tablecfg "github.com/avvvet/poker-services/internal/tablesvc/config"
)

const SERVICE_NAME = "history"

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
	if settings.MongoURI == "" {
		log.Fatal("MONGODB_URI is required")
	}

	database, err := db.ConnectToDB(settings.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer database.Client().Disconnect(context.Background())
	log.Infof("mongo connection established (%s)", database.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hands := archive.NewArchive(database, settings.HistoryTTL)
	if err := hands.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	n, err := natscli.Connect(SERVICE_NAME + "-" + instanceId)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connected at %s", n.Url)

	// one archiver per event across instances
	sub, err := n.Conn.QueueSubscribe(comm.SubjectEvents, SERVICE_NAME+"-service", func(m *nats.Msg) {
		msg := &comm.WSMessage{}
		if err := json.Unmarshal(m.Data, msg); err != nil {
			log.Errorf("Error decoding event: %s", err)
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, settings.RequestTimeout)
		defer cancel()
		if err := hands.Handle(reqCtx, msg); err != nil {
			log.Errorf("archive: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Subscribe %s error: %v", comm.SubjectEvents, err)
	}

	<-ctx.Done()
	sub.Drain()
	log.Infof("%s service stopped", SERVICE_NAME)
}
