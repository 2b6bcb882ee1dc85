package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FSM1/cipher-box-sub011/internal/audit"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

// The epoch state lives in a single well-known document.
const stateDocID = "epoch-state"

type MongoStateStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStateStore(ctx context.Context, uri, dbName, collName string) (*MongoStateStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	// Verify connection quickly
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	return &MongoStateStore{
		client: cli,
		coll:   cli.Database(dbName).Collection(collName),
	}, nil
}

func (m *MongoStateStore) Load(ctx context.Context) (tee.State, error) {
	var doc struct {
		State tee.State `bson:"state"`
	}
	err := m.coll.FindOne(ctx, bson.M{"_id": stateDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return tee.State{}, ErrNotFound
	}
	return doc.State, err
}

func (m *MongoStateStore) Save(ctx context.Context, s tee.State) error {
	_, err := m.coll.UpdateByID(
		ctx,
		stateDocID,
		bson.M{
			"$set": bson.M{
				"state":     s,
				"updatedAt": time.Now(),
			},
			"$setOnInsert": bson.M{
				"createdAt": time.Now(),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *MongoStateStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// MongoAuditTrail stores the rotation trail as insert-only documents, each
// carrying its chain hash. Deletes and edits show up as a broken chain.
type MongoAuditTrail struct {
	client   *mongo.Client
	coll     *mongo.Collection
	lastHash string
}

func NewMongoAuditTrail(ctx context.Context, uri, dbName, collName string) (*MongoAuditTrail, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	coll := cli.Database(dbName).Collection(collName)

	t := &MongoAuditTrail{client: cli, coll: coll}
	if err := t.loadLastHash(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return t, nil
}

func (m *MongoAuditTrail) loadLastHash(ctx context.Context) error {
	var doc audit.Entry
	opts := options.FindOne().SetSort(bson.D{{Key: "ts", Value: -1}})
	err := m.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return err
	}
	m.lastHash = doc.Hash
	return nil
}

func (m *MongoAuditTrail) Record(ctx context.Context, rec tee.RotationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	e := audit.Entry{
		TS:      time.Now().UTC(),
		Payload: raw,
		Hash:    audit.ChainHash(m.lastHash, raw),
	}
	if _, err := m.coll.InsertOne(ctx, e); err != nil {
		return err
	}
	m.lastHash = e.Hash
	return nil
}

// Verify walks the stored trail in timestamp order and checks the chain.
func (m *MongoAuditTrail) Verify(ctx context.Context) error {
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var entries []audit.Entry
	for cur.Next(ctx) {
		var e audit.Entry
		if err := cur.Decode(&e); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	_, err = audit.Load(entries)
	return err
}

func (m *MongoAuditTrail) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
