package models

// LiveEvent is a discoverable event returned by the event-search service.
// These are optional enrichment; a person confirms which ones to keep
// before they enter the itinerary.
type LiveEvent struct {
	EventID  string `json:"event_id" bson:"event_id"`
	Title    string `json:"title" bson:"title"`
	Venue    string `json:"venue" bson:"venue"`
	City     string `json:"city" bson:"city"`
	Date     string `json:"date" bson:"date"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
}

// Forecast is one day of weather for the primary destination.
type Forecast struct {
	Date      string  `json:"date"`
	Condition string  `json:"condition"`
	HighTempC float64 `json:"high_temp_c"`
	LowTempC  float64 `json:"low_temp_c"`
	RainProb  float64 `json:"rain_prob"`
}
