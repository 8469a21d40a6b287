package io

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// DefaultCollection holds published snapshots.
const DefaultCollection = "snapshots"

// MongoStore publishes snapshots to a MongoDB collection, keyed by
// snapshot id. Publishing the same layout twice overwrites one document.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// snapshotDoc is the stored form. The snapshot itself is kept as its JSON
// encoding so the document schema does not follow every field change.
type snapshotDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Nodes     int       `bson:"nodes"`
	Snapshot  string    `bson:"snapshot"`
	Published time.Time `bson:"published"`
}

// StoredSnapshot describes a published snapshot without its nodes.
type StoredSnapshot struct {
	ID        string
	Name      string
	Nodes     int
	Published time.Time
}

// NewMongoStore connects to uri and uses DefaultCollection in database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "mongo uri")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect to mongo")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultCollection),
	}, nil
}

// Put stores s, replacing any snapshot with the same id.
func (m *MongoStore) Put(ctx context.Context, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == "" {
		return errors.New(errors.ErrCodeInvalidFormat, "snapshot %q has no id", s.Name)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot")
	}
	doc := snapshotDoc{
		ID:        s.ID,
		Name:      s.Name,
		Nodes:     len(s.Nodes),
		Snapshot:  string(data),
		Published: time.Now().UTC(),
	}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store snapshot %s", s.ID)
	}
	return nil
}

// Get loads the snapshot with the given id.
func (m *MongoStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	var doc snapshotDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "snapshot %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load snapshot %s", id)
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(doc.Snapshot), &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode snapshot %s", id)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns the published snapshots named name, newest first. An
// empty name lists all.
func (m *MongoStore) List(ctx context.Context, name string) ([]StoredSnapshot, error) {
	filter := bson.M{}
	if name != "" {
		filter["name"] = name
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetProjection(bson.M{"snapshot": 0})
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list snapshots")
	}
	var docs []snapshotDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list snapshots")
	}
	out := make([]StoredSnapshot, len(docs))
	for i, d := range docs {
		out[i] = StoredSnapshot{ID: d.ID, Name: d.Name, Nodes: d.Nodes, Published: d.Published}
	}
	return out, nil
}

// Close disconnects from the server.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
