package db

import (
	"context"
	"fmt"
	"time"

	"smart-parking/models"
	"smart-parking/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoClient struct {
	client *mongo.Client
	dbName string
}

func NewMongoClient(uri string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %s", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %s", err)
	}

	return &MongoClient{
		client: client,
		dbName: utils.GetEnv("MONGO_DB_NAME", "smart-parking"),
	}, nil
}

func (m *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoClient) allocations() *mongo.Collection {
	return m.client.Database(m.dbName).Collection("allocations")
}

// SaveAllocation stores a completed allocation record.
func (m *MongoClient) SaveAllocation(record *models.AllocationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if record.ID == 0 {
		record.ID = time.Now().UnixNano()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	_, err := m.allocations().InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("error storing allocation: %s", err)
	}
	return nil
}

// RecentAllocations retrieves the newest records first.
func (m *MongoClient) RecentAllocations(limit int) ([]models.AllocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.allocations().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying allocations: %s", err)
	}
	defer cursor.Close(ctx)

	var records []models.AllocationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("error decoding allocations: %s", err)
	}

	return records, nil
}
