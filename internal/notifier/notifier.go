package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/habitlens/habitlens/internal/config"
	"github.com/habitlens/habitlens/internal/detector"
)

// dedupTTL guards against re-announcing a signature when the consumer
// restarts mid-session and rebuilds detector state.
const dedupTTL = time.Hour

// Notifier publishes detected-pattern notifications for downstream
// consumers (alerting, suggestion surfaces).
type Notifier struct {
	writer *kafka.Writer
	redis  *redis.Client
}

func New(cfg config.KafkaConfig, rdb *redis.Client) *Notifier {
	n := &Notifier{redis: rdb}

	if topic, ok := cfg.Topics["detections"]; ok && len(cfg.Brokers) > 0 {
		n.writer = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              1,
			BatchTimeout:           time.Millisecond * 10,
			Async:                  true, // notifications must not block detection
			AllowAutoTopicCreation: true,
		}
		log.Info().Str("topic", topic).Msg("Detection writer initialized")
	}

	return n
}

// PublishNew announces a newly detected pattern. Repeat matches of an
// already-announced signature are suppressed by the dedup guard.
func (n *Notifier) PublishNew(ctx context.Context, userID, sessionID string, det *detector.Detection) {
	if n.writer == nil {
		return
	}
	if !n.markAnnounced(ctx, sessionID, det.Signature) {
		return
	}

	payload := map[string]interface{}{
		"kind":         "pattern_detected",
		"user_id":      userID,
		"session_id":   sessionID,
		"signature":    det.Signature,
		"window":       det.Window,
		"occurrences":  det.Occurrences,
		"first_seen":   det.FirstSeen,
		"last_seen":    det.LastSeen,
		"confidence":   det.Confidence,
		"published_at": time.Now().UnixMilli(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal detection")
		return
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: data,
	})
	if err != nil {
		log.Error().Err(err).Str("signature", det.Signature).Msg("Failed to publish detection")
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Str("signature", det.Signature).
		Int("occurrences", det.Occurrences).
		Msg("Pattern detected in session")
}

// markAnnounced takes the cross-restart dedup guard. Without Redis the
// in-process detector state is the only guard, which is enough for a
// single consumer lifetime.
func (n *Notifier) markAnnounced(ctx context.Context, sessionID, signature string) bool {
	if n.redis == nil {
		return true
	}
	key := "detected:" + sessionID + ":" + signature
	ok, err := n.redis.SetNX(ctx, key, 1, dedupTTL).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Detection dedup unavailable")
		return true
	}
	return ok
}

func (n *Notifier) Close() {
	if n.writer != nil {
		if err := n.writer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close detection writer")
		}
	}
}
