package trips

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"voyago/db"
	"voyago/models"
	"voyago/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const coverUploadDir = "static/trippic"

// POST /api/trips/:id/cover
// Accepts a multipart image, saves a banner-sized original and a thumbnail.
func UploadCover(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tripID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var trip models.Trip
	if err := db.TripsCollection.FindOne(ctx, bson.M{"tripid": tripID}).Decode(&trip); err != nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if trip.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		http.Error(w, "Missing cover file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		http.Error(w, "Failed to decode image", http.StatusBadRequest)
		return
	}

	if err := utils.EnsureDir(coverUploadDir); err != nil {
		http.Error(w, "Failed to create upload directory", http.StatusInternalServerError)
		return
	}
	thumbDir := filepath.Join(coverUploadDir, "thumb")
	if err := utils.EnsureDir(thumbDir); err != nil {
		http.Error(w, "Failed to create thumbnail directory", http.StatusInternalServerError)
		return
	}

	fileName := tripID + ".jpg"
	banner := imaging.Resize(img, 1280, 0, imaging.Lanczos)
	if err := imaging.Save(banner, filepath.Join(coverUploadDir, fileName)); err != nil {
		http.Error(w, "Failed to save cover image", http.StatusInternalServerError)
		return
	}

	thumb := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, fileName)); err != nil {
		http.Error(w, "Failed to save thumbnail", http.StatusInternalServerError)
		return
	}

	coverPath := "/static/trippic/" + fileName
	if _, err := db.TripsCollection.UpdateOne(ctx, bson.M{"tripid": tripID},
		bson.M{"$set": bson.M{"cover_image": coverPath}}); err != nil {
		http.Error(w, "Error updating trip", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"cover_image": coverPath,
		"thumbnail":   fmt.Sprintf("/static/trippic/thumb/%s", fileName),
	})
}
