package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// FavoritesRepository keeps one document per customer in the "favorites"
// collection.
type FavoritesRepository struct {
	collection *mongo.Collection
}

func NewFavoritesRepository(db *mongo.Database) *FavoritesRepository {
	return &FavoritesRepository{collection: db.Collection("favorites")}
}

func (f *FavoritesRepository) CreateIndexes(ctx context.Context) error {
	_, err := f.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "customer_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create favorites index: %w", err)
	}
	return nil
}

// Get returns the customer's favorites. A customer with none gets an empty list.
func (f *FavoritesRepository) Get(ctx context.Context, customerID int64) (*domain.Favorites, error) {
	var fav domain.Favorites
	err := f.collection.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&fav)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.Favorites{CustomerID: customerID, ProductIDs: []int64{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}
	if fav.ProductIDs == nil {
		fav.ProductIDs = []int64{}
	}
	return &fav, nil
}

func (f *FavoritesRepository) Add(ctx context.Context, customerID, productID int64) error {
	filter := bson.M{"customer_id": customerID}
	update := bson.M{
		"$addToSet": bson.M{"product_ids": productID},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	_, err := f.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (f *FavoritesRepository) Remove(ctx context.Context, customerID, productID int64) error {
	filter := bson.M{"customer_id": customerID}
	update := bson.M{
		"$pull": bson.M{"product_ids": productID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	if _, err := f.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
