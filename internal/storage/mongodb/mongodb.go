package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/storage"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStorage struct {
	client     *mongo.Client
	database   *mongo.Database
	collection *mongo.Collection
}

var _ storage.Storage = (*MongoStorage)(nil)

// transactionDocument представление записи в коллекции
type transactionDocument struct {
	TransactionID      string               `bson:"transaction_id"`
	SourceAccount      string               `bson:"source_account"`
	DestinationAccount string               `bson:"destination_account"`
	Amount             primitive.Decimal128 `bson:"amount"`
	Currency           string               `bson:"currency"`
	Status             string               `bson:"status"`
	ReceivedAt         time.Time            `bson:"received_at"`
	ProcessedAt        *time.Time           `bson:"processed_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
}

func NewMongoStorage(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoStorage, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctxPing, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	coll := db.Collection(collection)

	// уникальный индекс по transaction_id обеспечивает идемпотентную вставку
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "received_at", Value: -1}}},
	}

	ctxIndex, cancelIndex := context.WithTimeout(ctx, timeout)
	defer cancelIndex()

	if _, err := coll.Indexes().CreateMany(ctxIndex, indexModels); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoStorage{
		client:     client,
		database:   db,
		collection: coll,
	}, nil
}

func (s *MongoStorage) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (*models.Transaction, bool, error) {
	doc, err := toDocument(tx)
	if err != nil {
		return nil, false, err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return nil, false, wrapErr("failed to save transaction", err)
		}
		existing, err := s.GetByID(ctx, tx.TransactionID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	created, err := fromDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *MongoStorage) TransitionStatus(
	ctx context.Context,
	transactionID string,
	from, to models.TransactionStatus,
	at time.Time,
) (*models.Transaction, bool, error) {
	if !from.CanTransitionTo(to) {
		return nil, false, fmt.Errorf("mongodb: %s -> %s: %w", from, to, custom_err.ErrInvalidTransition)
	}

	set := bson.M{
		"status":     string(to),
		"updated_at": at,
	}
	if to.IsTerminal() {
		set["processed_at"] = at
	}

	filter := bson.M{"transaction_id": transactionID, "status": string(from)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc transactionDocument
	err := s.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, wrapErr("failed to update transaction status", err)
	}

	updated, err := fromDocument(&doc)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (s *MongoStorage) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var doc transactionDocument

	filter := bson.M{"transaction_id": transactionID}
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, custom_err.ErrNotFound
		}
		return nil, wrapErr("failed to get transaction", err)
	}

	return fromDocument(&doc)
}

func (s *MongoStorage) List(ctx context.Context, params models.ListParams) ([]*models.Transaction, error) {
	params = params.Normalize()

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}, {Key: "transaction_id", Value: 1}}).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.Limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapErr("failed to list transactions", err)
	}
	defer cursor.Close(ctx)

	transactions := make([]*models.Transaction, 0, params.Limit)
	for cursor.Next(ctx) {
		var doc transactionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapErr("failed to list transactions", err)
	}

	return transactions, nil
}

func (s *MongoStorage) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func toDocument(tx *models.Transaction) (*transactionDocument, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %w", tx.Amount.String(), err)
	}
	return &transactionDocument{
		TransactionID:      tx.TransactionID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             amount,
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		ReceivedAt:         tx.ReceivedAt,
		ProcessedAt:        tx.ProcessedAt,
		UpdatedAt:          tx.UpdatedAt,
	}, nil
}

func fromDocument(doc *transactionDocument) (*models.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %s: %w", doc.Amount.String(), err)
	}
	return &models.Transaction{
		TransactionID:      doc.TransactionID,
		SourceAccount:      doc.SourceAccount,
		DestinationAccount: doc.DestinationAccount,
		Amount:             amount,
		Currency:           doc.Currency,
		Status:             models.TransactionStatus(doc.Status),
		ReceivedAt:         doc.ReceivedAt,
		ProcessedAt:        doc.ProcessedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

func wrapErr(msg string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", msg, custom_err.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
