package models

// Trip statuses as stored; the status field is the single source of
// truth for generation outcome across restarts.
const (
	TripStatusDraft      = "draft"
	TripStatusGenerating = "generating"
	TripStatusCompleted  = "completed"
	TripStatusFailed     = "failed"
)

// Trip represents a travel plan
type Trip struct {
	TripID       string    `json:"tripid" bson:"tripid,omitempty"`
	UserID       string    `json:"user_id" bson:"user_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description" bson:"description"`
	Destinations []string  `json:"destinations" bson:"destinations"`
	StartDate    string    `json:"start_date" bson:"start_date"`
	Nights       int       `json:"nights" bson:"nights"`
	Status       string    `json:"status" bson:"status"`
	CoverImage   string    `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	Days         []TripDay `json:"days" bson:"days"`
	Deleted      bool      `json:"-" bson:"deleted,omitempty"` // Internal use only
}

// PrimaryCity returns the first destination, the anchor for forecasts.
func (t *Trip) PrimaryCity() string {
	if len(t.Destinations) == 0 {
		return ""
	}
	return t.Destinations[0]
}

// DayCount is nights + 1 (arrival day counts).
func (t *Trip) DayCount() int {
	return t.Nights + 1
}

// TripDay is one generated day of the itinerary
type TripDay struct {
	Date       string     `json:"date" bson:"date"`
	Title      string     `json:"title" bson:"title"`
	Summary    string     `json:"summary,omitempty" bson:"summary,omitempty"`
	Activities []Activity `json:"activities" bson:"activities"`
}

type Activity struct {
	Name      string `json:"name" bson:"name"`
	Kind      string `json:"kind" bson:"kind"` // sightseeing/food/event/transit/rest
	StartTime string `json:"start_time" bson:"start_time"`
	EndTime   string `json:"end_time" bson:"end_time"`
	Location  string `json:"location" bson:"location"`
	Notes     string `json:"notes,omitempty" bson:"notes,omitempty"`
	// set when the activity came from a confirmed live event
	EventID string `json:"event_id,omitempty" bson:"event_id,omitempty"`
}
