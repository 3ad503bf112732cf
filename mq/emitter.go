package mq

import (
	"context"
	"encoding/json"
	"log"

	"voyago/models"
	"voyago/rdx"
)

const generationChannel = "generation-events"

// Generation lifecycle event names.
const (
	EvGenerationStarted   = "generation.started"
	EvWaitingForSelection = "generation.waiting_selection"
	EvDayRevealed         = "generation.day_revealed"
	EvGenerationCompleted = "generation.completed"
	EvGenerationFailed    = "generation.failed"
	EvGenerationCancelled = "generation.cancelled"
)

// EmitGeneration publishes a generation lifecycle event to Redis.
// Emission is fire-and-forget; a publish failure never affects the run.
func EmitGeneration(ctx context.Context, event models.GenerationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EmitGeneration] marshal failed: %v", err)
		return
	}

	if err := rdx.Conn.Publish(ctx, generationChannel, data).Err(); err != nil {
		log.Printf("[EmitGeneration] publish failed: %v", err)
	}
}

// StartGenerationWorker consumes generation events off Redis. Today it
// only logs them; downstream consumers (notifications, analytics)
// subscribe to the same channel.
func StartGenerationWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, generationChannel)
	ch := sub.Channel()

	log.Println("[GenerationWorker] Listening for generation events...")

	for msg := range ch {
		var event models.GenerationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[GenerationWorker] Failed to parse event: %v", err)
			continue
		}
		log.Printf("[GenerationWorker] %s trip=%s step=%s progress=%.2f %s",
			event.Name, event.TripID, event.Step, event.Progress, event.Detail)
	}
}
