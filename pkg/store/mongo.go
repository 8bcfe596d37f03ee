package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
)

// Collection names.
const (
	CollRuns     = "runs"
	CollEvents   = "events"
	CollRemovals = "removals"
)

// MongoConfig configures [MongoStore].
type MongoConfig struct {
	URI      string        `toml:"uri" json:"uri"`
	Database string        `toml:"database" json:"database"`
	Timeout  time.Duration `toml:"timeout" json:"timeout"`
}

// SetDefaults fills empty fields.
func (c *MongoConfig) SetDefaults() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "sceneguard"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// MongoStore keeps runs, events and removal reports in three collections.
// Events and reports carry a run_id field indexed for lookups.
type MongoStore struct {
	client   *mongo.Client
	runs     *mongo.Collection
	events   *mongo.Collection
	removals *mongo.Collection
	timeout  time.Duration
}

// eventDoc and removalDoc tag child documents with their run.
type eventDoc struct {
	RunID         string `bson:"run_id"`
	overlap.Event `bson:",inline"`
}

type removalDoc struct {
	RunID          string `bson:"run_id"`
	fadeout.Report `bson:",inline"`
}

// NewMongoStore connects, pings the primary and ensures the run_id indexes.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	cfg.SetDefaults()
	opts := options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:   client,
		runs:     db.Collection(CollRuns),
		events:   db.Collection(CollEvents),
		removals: db.Collection(CollRemovals),
		timeout:  cfg.Timeout,
	}
	for _, c := range []*mongo.Collection{s.events, s.removals} {
		if _, err := c.Indexes().CreateOne(cctx, mongo.IndexModel{Keys: bson.D{{Key: "run_id", Value: 1}}}); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("create index on %s: %w", c.Name(), err)
		}
	}
	if _, err := s.runs.Indexes().CreateOne(cctx, mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index on %s: %w", CollRuns, err)
	}
	return s, nil
}

func (s *MongoStore) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) SaveRun(ctx context.Context, r Run) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	return wrapMongo(err, "save run %s", r.ID)
}

func (s *MongoStore) GetRun(ctx context.Context, id string) (Run, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var r Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return Run{}, runNotFound(id)
	}
	return r, wrapMongo(err, "get run %s", id)
}

func (s *MongoStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapMongo(err, "list runs")
	}
	var runs []Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, wrapMongo(err, "decode runs")
	}
	out := make([]RunInfo, len(runs))
	for i, r := range runs {
		out[i] = r.Info()
	}
	return out, nil
}

func (s *MongoStore) DeleteRun(ctx context.Context, id string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	res, err := s.runs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapMongo(err, "delete run %s", id)
	}
	if res.DeletedCount == 0 {
		return runNotFound(id)
	}
	if _, err := s.events.DeleteMany(ctx, bson.M{"run_id": id}); err != nil {
		return wrapMongo(err, "delete events of %s", id)
	}
	_, err = s.removals.DeleteMany(ctx, bson.M{"run_id": id})
	return wrapMongo(err, "delete removals of %s", id)
}

func (s *MongoStore) SaveEvent(ctx context.Context, runID string, ev overlap.Event) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	_, err := s.events.ReplaceOne(ctx, bson.M{"_id": ev.ID}, eventDoc{RunID: runID, Event: ev}, options.Replace().SetUpsert(true))
	return wrapMongo(err, "save event %s", ev.ID)
}

func (s *MongoStore) Events(ctx context.Context, runID string) ([]overlap.Event, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	cur, err := s.events.Find(ctx, bson.M{"run_id": runID}, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, wrapMongo(err, "list events")
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrapMongo(err, "decode events")
	}
	out := make([]overlap.Event, len(docs))
	for i, d := range docs {
		out[i] = d.Event
	}
	return out, nil
}

func (s *MongoStore) AppendRemoval(ctx context.Context, runID string, r fadeout.Report) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	_, err := s.removals.InsertOne(ctx, removalDoc{RunID: runID, Report: r})
	return wrapMongo(err, "save removal %s", r.OperationID)
}

func (s *MongoStore) Removals(ctx context.Context, runID string) ([]fadeout.Report, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	cur, err := s.removals.Find(ctx, bson.M{"run_id": runID}, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, wrapMongo(err, "list removals")
	}
	var docs []removalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrapMongo(err, "decode removals")
	}
	out := make([]fadeout.Report, len(docs))
	for i, d := range docs {
		out[i] = d.Report
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func wrapMongo(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, format, args...)
}

var _ Store = (*MongoStore)(nil)
