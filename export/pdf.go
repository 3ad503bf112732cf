package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"voyago/db"
	"voyago/models"
	"voyago/rdx"
	"voyago/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
)

// GET /api/trips/:id/export/pdf
// Renders a completed trip's itinerary as an A4 PDF with a share QR code.
func TripPDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	if trip.Status != models.TripStatusCompleted {
		http.Error(w, "Trip has no completed itinerary", http.StatusConflict)
		return
	}

	shareBase := os.Getenv("SHARE_BASE_URL")
	if shareBase == "" {
		shareBase = "https://voyago.app"
	}
	qrPNG, err := qrcode.Encode(fmt.Sprintf("%s/trips/%s", shareBase, trip.TripID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, trip.Name)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	if username, err := rdx.RdxGet("users:" + userID); err == nil && username != "" {
		pdf.Cell(0, 8, "Prepared for "+username)
		pdf.Ln(8)
	}
	pdf.Cell(0, 8, fmt.Sprintf("From %s, %d nights", trip.StartDate, trip.Nights))
	pdf.Ln(8)
	for _, city := range trip.Destinations {
		pdf.Cell(0, 8, city)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	for _, day := range trip.Days {
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 9, fmt.Sprintf("%s - %s", day.Date, day.Title))
		pdf.Ln(9)

		pdf.SetFont("Arial", "", 11)
		if day.Summary != "" {
			pdf.MultiCell(0, 6, day.Summary, "", "L", false)
			pdf.Ln(1)
		}
		for _, act := range day.Activities {
			line := fmt.Sprintf("%s-%s  %s (%s)", act.StartTime, act.EndTime, act.Name, act.Location)
			pdf.Cell(0, 6, line)
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	// Share QR on the last page
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("share-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("share-qr", 160, 250, 35, 35, false, opts, 0, "")
	pdf.SetY(247)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(0, 5, "Scan to view this trip")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to render PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", trip.TripID))
	w.Write(buf.Bytes())
}
