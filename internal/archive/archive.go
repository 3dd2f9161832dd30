package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/db"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "hand_history"

var ErrNotFound = errors.New("hand not archived")

type Archive struct {
	coll *mongo.Collection
	ttl  time.Duration
	now  func() time.Time
}

func NewArchive(database *mongo.Database, ttl time.Duration) *Archive {
	return &Archive{coll: database.Collection(Collection), ttl: ttl, now: time.Now}
}

// EnsureIndexes creates the TTL and table lookup indexes.
func (a *Archive) EnsureIndexes(ctx context.Context) error {
	if err := db.CreateTTLIndexForCollection(ctx, a.coll.Database(), Collection); err != nil {
		return fmt.Errorf("ttl index: %w", err)
	}
	_, err := a.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "table_id", Value: 1}, {Key: "hand_no", Value: -1}},
	})
	return err
}

// Save upserts rec by hand id so a redelivered event is harmless.
func (a *Archive) Save(ctx context.Context, rec *HandRecord) error {
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": rec.HandID}, rec, options.Replace().SetUpsert(true))
	return err
}

func (a *Archive) Get(ctx context.Context, handID int64) (*HandRecord, error) {
	rec := &HandRecord{}
	err := a.coll.FindOne(ctx, bson.M{"_id": handID}).Decode(rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Recent returns the latest archived hands of a table, newest first.
func (a *Archive) Recent(ctx context.Context, tableID int64, limit int64) ([]*HandRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "hand_no", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{"table_id": tableID}, opts)
	if err != nil {
		return nil, err
	}
	var out []*HandRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Handle consumes one bus message. Only hand-completed events are kept.
func (a *Archive) Handle(ctx context.Context, msg *comm.WSMessage) error {
	if msg.Type != comm.TypeHandCompleted {
		return nil
	}
	ev := comm.HandCompleted{}
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	rec := NewRecord(ev, a.ttl, a.now())
	if rec.ReplayError != "" {
		log.WithFields(log.Fields{"hand": ev.HandID, "voided": ev.Voided}).Warnf("archived hand does not replay: %s", rec.ReplayError)
	}
	if err := a.Save(ctx, rec); err != nil {
		return fmt.Errorf("save hand %d: %w", ev.HandID, err)
	}
	log.WithFields(log.Fields{"table": ev.TableID, "hand": ev.HandID, "frames": len(rec.Frames)}).Info("hand archived")
	return nil
}
