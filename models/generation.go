package models

// Generation pipeline steps, in the order they run.
const (
	StepAnalyzing  = "analyzing"
	StepWeather    = "weather"
	StepEvents     = "events"
	StepPlanning   = "planning"
	StepDetailing  = "detailing"
	StepFinalizing = "finalizing"
)

// GenerationSnapshot is the read-only view of a generation session
// handed to observers. Exactly one of the four status flags is true
// once the run has started.
type GenerationSnapshot struct {
	TripID             string      `json:"trip_id"`
	Step               string      `json:"step"`
	Progress           float64     `json:"progress"`
	IsGenerating       bool        `json:"is_generating"`
	IsWaitingForEvents bool        `json:"is_waiting_for_events"`
	IsComplete         bool        `json:"is_complete"`
	HasFailed          bool        `json:"has_failed"`
	ErrorMessage       string      `json:"error_message,omitempty"`
	GeneratedDays      []TripDay   `json:"generated_days"`
	Forecasts          []Forecast  `json:"forecasts,omitempty"`
	FoundEvents        []LiveEvent `json:"found_events"`
	SelectedEventIDs   []string    `json:"selected_event_ids"`
	CompletedTrip      *Trip       `json:"completed_trip,omitempty"`
}

// GenerationEvent is a semantic lifecycle event published over Redis.
type GenerationEvent struct {
	Name     string  `json:"name"` // generation.started, generation.completed, ...
	TripID   string  `json:"trip_id"`
	UserID   string  `json:"user_id,omitempty"`
	Step     string  `json:"step,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}
