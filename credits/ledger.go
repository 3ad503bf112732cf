package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voyago/db"
	"voyago/models"
	"voyago/rdx"
	"voyago/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// lockTTL defines the duration to hold the Redis lock per user
const lockTTL = 5 * time.Second

var (
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrLedgerBusy         = errors.New("ledger busy, retry")
)

// Ledger debits and credits generation credits. Spends for one account
// are serialized through a Redis lock so two concurrent generations
// cannot both consume the last credit.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Spend debits exactly one credit for a generation attempt on tripID.
// A refused spend deducts nothing.
func (l *Ledger) Spend(ctx context.Context, userID, tripID string) error {
	acquired, err := rdx.RdxSetNX("wallet_lock:"+userID, "1", lockTTL)
	if err != nil {
		return fmt.Errorf("wallet lock: %w", err)
	}
	if !acquired {
		return ErrLedgerBusy
	}
	defer rdx.RdxDel("wallet_lock:" + userID)

	accID, err := getOrCreateAccount(ctx, userID)
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}

	txn := models.CreditTransaction{
		ID:        utils.GetUUID(),
		UserID:    userID,
		Type:      "spend",
		TripID:    tripID,
		Amount:    1,
		Status:    "initiated",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Meta:      models.Meta{"note": "trip generation"},
	}
	if _, err := db.TransactionCollection.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("record spend: %w", err)
	}

	// Conditional decrement; matches only while a credit remains.
	res, err := db.AccountsCollection.UpdateOne(ctx,
		bson.M{"_id": accID, "balance": bson.M{"$gte": 1}},
		bson.M{
			"$inc": bson.M{"balance": -1, "version": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil || res.ModifiedCount == 0 {
		txn.Status = "failed"
		txn.UpdatedAt = time.Now()
		_, _ = db.TransactionCollection.UpdateOne(ctx, bson.M{"_id": txn.ID}, bson.M{"$set": txn})
		if err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		return ErrInsufficientCredit
	}

	txn.Status = "success"
	txn.UpdatedAt = time.Now()
	_, _ = db.TransactionCollection.UpdateOne(ctx, bson.M{"_id": txn.ID}, bson.M{"$set": txn})
	return nil
}

// Balance returns the current credit balance, creating the account lazily.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	accID, err := getOrCreateAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	var acc models.CreditAccount
	if err := db.AccountsCollection.FindOne(ctx, bson.M{"_id": accID}).Decode(&acc); err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func getOrCreateAccount(ctx context.Context, userID string) (string, error) {
	var acc models.CreditAccount
	err := db.AccountsCollection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&acc)
	if err == nil {
		return acc.ID, nil
	}
	if err != mongo.ErrNoDocuments {
		return "", err
	}

	acc = models.CreditAccount{
		ID:        utils.GetUUID(),
		UserID:    userID,
		Balance:   0,
		Version:   1,
		UpdatedAt: time.Now(),
	}
	if _, err := db.AccountsCollection.InsertOne(ctx, acc); err != nil {
		return "", err
	}
	return acc.ID, nil
}
