package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"voyago/db"
	"voyago/models"
	"voyago/rdx"
	"voyago/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// --- TopUp ---
func (l *Ledger) TopUp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := context.Background()
	userID := utils.GetUserIDFromRequest(r)

	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey != "" {
		var existing models.CreditTransaction
		if err := db.TransactionCollection.FindOne(ctx, bson.M{"idempotency_key": idempotencyKey, "type": "topup"}).Decode(&existing); err == nil {
			utils.RespondWithJSON(w, http.StatusOK, existing)
			return
		}
	}

	// Acquire Redis lock per user
	acquired, err := rdx.RdxSetNX("wallet_lock:"+userID, "1", lockTTL)
	if err != nil || !acquired {
		http.Error(w, "please retry", http.StatusTooManyRequests)
		return
	}
	defer rdx.RdxDel("wallet_lock:" + userID)

	accID, err := getOrCreateAccount(ctx, userID)
	if err != nil {
		http.Error(w, "account error", http.StatusInternalServerError)
		return
	}

	txn := models.CreditTransaction{
		ID:             utils.GetUUID(),
		UserID:         userID,
		Type:           "topup",
		Amount:         body.Amount,
		Status:         "initiated",
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
		Meta:           models.Meta{"note": "topup"},
	}
	if _, err := db.TransactionCollection.InsertOne(ctx, txn); err != nil {
		http.Error(w, "topup failed", http.StatusInternalServerError)
		return
	}

	if _, err := db.AccountsCollection.UpdateOne(ctx, bson.M{"_id": accID}, bson.M{
		"$inc": bson.M{"balance": body.Amount, "version": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}); err != nil {
		txn.Status = "failed"
		txn.UpdatedAt = time.Now()
		_, _ = db.TransactionCollection.UpdateOne(ctx, bson.M{"_id": txn.ID}, bson.M{"$set": txn})
		http.Error(w, "topup failed", http.StatusInternalServerError)
		return
	}

	// Mark success
	txn.Status = "success"
	txn.UpdatedAt = time.Now()
	_, _ = db.TransactionCollection.UpdateOne(ctx, bson.M{"_id": txn.ID}, bson.M{"$set": txn})

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"transaction_id": txn.ID,
	})
}

// --- Balance ---
func (l *Ledger) GetBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	balance, err := l.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, "account error", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"balance": balance,
	})
}

// --- History ---
func (l *Ledger) GetHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(100)
	cursor, err := db.TransactionCollection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		http.Error(w, "Error fetching transactions", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var txns []models.CreditTransaction
	for cursor.Next(ctx) {
		var txn models.CreditTransaction
		if err := cursor.Decode(&txn); err == nil {
			txns = append(txns, txn)
		}
	}
	if txns == nil {
		txns = []models.CreditTransaction{}
	}

	utils.RespondWithJSON(w, http.StatusOK, txns)
}
