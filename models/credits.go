package models

import "time"

// CreditAccount holds the consumable generation credits for a user.
type CreditAccount struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Balance   int64     `json:"balance" bson:"balance"`
	Version   int64     `json:"version" bson:"version"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type Meta map[string]interface{}

// CreditTransaction records every balance movement.
type CreditTransaction struct {
	ID             string    `json:"id" bson:"_id"`
	UserID         string    `json:"user_id" bson:"user_id"`
	Type           string    `json:"type" bson:"type"` // topup / spend
	TripID         string    `json:"trip_id,omitempty" bson:"trip_id,omitempty"`
	Amount         int64     `json:"amount" bson:"amount"`
	Status         string    `json:"status" bson:"status"` // initiated / success / failed
	IdempotencyKey string    `json:"-" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
	Meta           Meta      `json:"meta,omitempty" bson:"meta,omitempty"`
}
