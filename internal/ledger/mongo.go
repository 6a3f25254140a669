// mongo.go - MongoDB ledger backend for shared deployments.
//
// Accounts are documents keyed by _id = hex address. MongoDB's unique-index
// guarantee on _id supplies the atomic create-if-absent primitive: a second
// insert at an occupied address fails with a duplicate-key error, which maps
// to ErrAccountExists.

package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const accountsCollection = "accounts"

// MongoLedger stores accounts in a MongoDB collection.
type MongoLedger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type accountDoc struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"data"`
}

// ConnectMongo establishes a connection and returns a ledger backed by the
// given database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoLedger, error) {
	if uri == "" {
		return nil, errors.New("mongo ledger: empty connection URI")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo ledger: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ledger: ping: %w", err)
	}
	return &MongoLedger{
		client:     client,
		collection: client.Database(database).Collection(accountsCollection),
	}, nil
}

// Disconnect closes the underlying client.
func (l *MongoLedger) Disconnect(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

// CreateAccount implements Ledger.
func (l *MongoLedger) CreateAccount(ctx context.Context, addr Address, data []byte) error {
	_, err := l.collection.InsertOne(ctx, accountDoc{ID: addr.String(), Data: data})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("mongo ledger: create %s: %w", addr, err)
	}
	return nil
}

// GetAccount implements Ledger.
func (l *MongoLedger) GetAccount(ctx context.Context, addr Address) ([]byte, error) {
	var doc accountDoc
	err := l.collection.FindOne(ctx, bson.M{"_id": addr.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo ledger: get %s: %w", addr, err)
	}
	return doc.Data, nil
}

// UpdateAccount implements Ledger.
func (l *MongoLedger) UpdateAccount(ctx context.Context, addr Address, data []byte) error {
	res, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": addr.String()},
		bson.M{"$set": bson.M{"data": data}})
	if err != nil {
		return fmt.Errorf("mongo ledger: update %s: %w", addr, err)
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SwapAccount implements Ledger. The old content rides in the update filter,
// so the swap is a single conditional write on the server.
func (l *MongoLedger) SwapAccount(ctx context.Context, addr Address, old, new []byte) error {
	res, err := l.collection.UpdateOne(ctx,
		bson.M{"_id": addr.String(), "data": old},
		bson.M{"$set": bson.M{"data": new}})
	if err != nil {
		return fmt.Errorf("mongo ledger: swap %s: %w", addr, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish an absent account from changed content.
		if _, err := l.GetAccount(ctx, addr); err != nil {
			return err
		}
		return ErrAccountConflict
	}
	return nil
}

// CloseAccount implements Ledger.
func (l *MongoLedger) CloseAccount(ctx context.Context, addr Address) error {
	res, err := l.collection.DeleteOne(ctx, bson.M{"_id": addr.String()})
	if err != nil {
		return fmt.Errorf("mongo ledger: close %s: %w", addr, err)
	}
	if res.DeletedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
