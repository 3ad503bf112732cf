package trips

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"voyago/db"
	"voyago/models"
	"voyago/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// POST /api/trips
func CreateTrip(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var trip models.Trip
	if err := json.NewDecoder(r.Body).Decode(&trip); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if trip.Name == "" || len(trip.Destinations) == 0 || trip.Nights <= 0 {
		http.Error(w, "Name, destinations and nights are required", http.StatusBadRequest)
		return
	}

	trip.UserID = userID
	trip.TripID = utils.GenerateRandomString(13)
	trip.Status = models.TripStatusDraft
	trip.Days = []models.TripDay{}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := db.TripsCollection.InsertOne(ctx, trip); err != nil {
		http.Error(w, "Error inserting trip", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, trip)
}

// GET /api/trips/:id
func GetTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var trip models.Trip
	err := db.TripsCollection.FindOne(ctx, bson.M{"tripid": tripID, "deleted": bson.M{"$ne": true}}).Decode(&trip)
	if err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, trip)
}

// GET /api/trips
func GetTrips(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.TripsCollection.Find(ctx, bson.M{"user_id": userID, "deleted": bson.M{"$ne": true}})
	if err != nil {
		http.Error(w, "Error fetching trips", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	for cursor.Next(ctx) {
		var trip models.Trip
		if err := cursor.Decode(&trip); err == nil {
			trips = append(trips, trip)
		}
	}
	if trips == nil {
		trips = []models.Trip{}
	}

	utils.RespondWithJSON(w, http.StatusOK, trips)
}

// PUT /api/trips/:id
func UpdateTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tripID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var existing models.Trip
	err := db.TripsCollection.FindOne(ctx, bson.M{"tripid": tripID}).Decode(&existing)
	if err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	if existing.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// A trip mid-generation cannot be edited out from under the pipeline.
	if existing.Status == models.TripStatusGenerating {
		http.Error(w, "Trip is generating", http.StatusConflict)
		return
	}

	var updated models.Trip
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	update := bson.M{"$set": bson.M{
		"name":         updated.Name,
		"description":  updated.Description,
		"destinations": updated.Destinations,
		"start_date":   updated.StartDate,
		"nights":       updated.Nights,
	}}

	if _, err := db.TripsCollection.UpdateOne(ctx, bson.M{"tripid": tripID}, update); err != nil {
		http.Error(w, "Error updating trip", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bson.M{"message": "Trip updated successfully"})
}

// DELETE /api/trips/:id
func DeleteTrip(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tripID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var trip models.Trip
	err := db.TripsCollection.FindOne(ctx, bson.M{"tripid": tripID}).Decode(&trip)
	if err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	if trip.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	update := bson.M{"$set": bson.M{"deleted": true}}
	if _, err := db.TripsCollection.UpdateOne(ctx, bson.M{"tripid": tripID}, update); err != nil {
		http.Error(w, "Error deleting trip", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bson.M{"message": "Trip deleted successfully"})
}

// GET /api/search/trips
func SearchTrips(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	filter := bson.M{"deleted": bson.M{"$ne": true}}
	if start := query.Get("start_date"); start != "" {
		filter["start_date"] = start
	}
	if cities := utils.SplitTags(query.Get("destinations")); len(cities) > 0 {
		filter["destinations"] = bson.M{"$in": cities}
	}
	if status := query.Get("status"); status != "" {
		filter["status"] = status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.TripsCollection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Error fetching trips", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	for cursor.Next(ctx) {
		var trip models.Trip
		if err := cursor.Decode(&trip); err == nil {
			trips = append(trips, trip)
		}
	}
	if trips == nil {
		trips = []models.Trip{}
	}

	utils.RespondWithJSON(w, http.StatusOK, trips)
}
