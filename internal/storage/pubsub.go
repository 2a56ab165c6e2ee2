package storage

import (
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"deskrelay/backend/internal/models"
)

// transcriptChannel carries one JSON TranscriptEvent per relayed message.
const transcriptChannel = "transcript:events"

// PublishTranscript broadcasts a persisted message to the admin live
// feed. Best-effort from the caller's point of view: relay code logs and
// discards any error returned here.
func (s *Service) PublishTranscript(msg *models.Message) error {
	if s.Redis == nil {
		return nil
	}
	data, err := json.Marshal(msg.Event())
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, transcriptChannel, data).Err()
}

// SubscribeTranscript opens a subscription on the transcript channel.
// The caller owns the returned PubSub and must Close it.
func (s *Service) SubscribeTranscript() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, transcriptChannel)
}
