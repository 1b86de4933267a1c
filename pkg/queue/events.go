package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserUpdated    EventType = "user_updated"
	EventUserDeleted    EventType = "user_deleted"
	EventFollowCreated  EventType = "follow_created"
	EventFollowDeleted  EventType = "follow_deleted"
	EventPostCreated    EventType = "post_created"
	EventPostDeleted    EventType = "post_deleted"
	EventPostLiked      EventType = "post_liked"
	EventPostUnliked    EventType = "post_unliked"
	EventCommentCreated EventType = "comment_created"
	EventCommentDeleted EventType = "comment_deleted"
	EventReplyCreated   EventType = "reply_created"
	EventReplyDeleted   EventType = "reply_deleted"
)

type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EntityEventData is the payload of every social event. AffectedUserIDs lists
// the users whose profile view changed.
type EntityEventData struct {
	EntityID        string   `json:"entity_id"`
	ActorID         string   `json:"actor_id"`
	AffectedUserIDs []string `json:"affected_user_ids"`
}

type rawEvent struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DecodeEntityEvent parses a message produced with an EntityEventData payload.
func DecodeEntityEvent(value []byte) (EventType, *EntityEventData, error) {
	var raw rawEvent
	if err := json.Unmarshal(value, &raw); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	var data EntityEventData
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return raw.Type, nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
	}
	return raw.Type, &data, nil
}
