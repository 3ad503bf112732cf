package trips

import (
	"context"
	"errors"
	"fmt"

	"voyago/db"
	"voyago/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrTripNotFound = errors.New("trip not found")

// Store gives the generation pipeline its view of trip persistence.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Fetch(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	err := db.TripsCollection.FindOne(ctx, bson.M{"tripid": tripID, "deleted": bson.M{"$ne": true}}).Decode(&trip)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch trip %s: %w", tripID, err)
	}
	return &trip, nil
}

func (s *Store) UpdateStatus(ctx context.Context, tripID, status string) error {
	_, err := db.TripsCollection.UpdateOne(ctx,
		bson.M{"tripid": tripID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("update trip %s status: %w", tripID, err)
	}
	return nil
}

// SaveDays replaces the trip's day-by-day schedule in one write.
func (s *Store) SaveDays(ctx context.Context, tripID string, days []models.TripDay) error {
	res, err := db.TripsCollection.UpdateOne(ctx,
		bson.M{"tripid": tripID},
		bson.M{"$set": bson.M{"days": days}},
	)
	if err != nil {
		return fmt.Errorf("save days for trip %s: %w", tripID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTripNotFound
	}
	return nil
}
