// Package mongokv provides a kv.Backend backed by a MongoDB collection.
package mongokv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the configuration for creating a MongoDB-backed Backend.
type Config struct {
	// URI is the MongoDB connection URI. Required.
	URI string
	// Database names the database to use. Required.
	Database string
	// Collection names the collection to use. Defaults to "httpcache".
	Collection string
	// KeyPrefix is prepended to every key. Defaults to "cache:".
	KeyPrefix string
	// Timeout bounds each database operation. Defaults to 5s.
	Timeout time.Duration
	// ClientOptions are passed through to mongo.Connect.
	ClientOptions *options.ClientOptions
}

func (c Config) withDefaults() Config {
	if c.Collection == "" {
		c.Collection = "httpcache"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cache:"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

type document struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Backend is a kv.Backend implementation backed by MongoDB.
type Backend struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyPrefix  string
	timeout    time.Duration
}

// New connects to MongoDB per cfg and returns a ready Backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, errors.New("mongokv: URI and Database are required")
	}
	cfg = cfg.withDefaults()

	clientOpts := cfg.ClientOptions
	if clientOpts == nil {
		clientOpts = options.Client()
	}
	clientOpts = clientOpts.ApplyURI(cfg.URI)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongokv: connect: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	return &Backend{
		client:     client,
		collection: collection,
		keyPrefix:  cfg.KeyPrefix,
		timeout:    cfg.Timeout,
	}, nil
}

func (b *Backend) docKey(key string) string { return b.keyPrefix + key }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var doc document
	err := b.collection.FindOne(ctx, bson.M{"_id": b.docKey(key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongokv: get %q: %w", key, err)
	}
	return doc.Data, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	doc := document{Key: b.docKey(key), Data: value, CreatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	_, err := b.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts)
	if err != nil {
		return fmt.Errorf("mongokv: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	_, err := b.collection.DeleteOne(ctx, bson.M{"_id": b.docKey(key)})
	if err != nil {
		return fmt.Errorf("mongokv: delete %q: %w", key, err)
	}
	return nil
}

// Close disconnects the underlying MongoDB client.
func (b *Backend) Close(ctx context.Context) error { return b.client.Disconnect(ctx) }
