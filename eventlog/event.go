package eventlog

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

type EventTypeString = string

// Events is an alias type for a slice of Event.
type Events = []Event

var ErrEmptyEventID = errors.New("event id must not be empty")
var ErrEmptyEventType = errors.New("event type must not be empty")
var ErrNilTags = errors.New("tags must not be nil")
var ErrNilPayload = errors.New("payload must not be nil")
var ErrInvalidPayloadJSON = errors.New("payload json is not valid")
var ErrNegativePosition = errors.New("position must not be negative")

// PlaceholderPosition is stamped on a not-yet-appended Event. The engine
// overwrites it with the authoritative position at append time.
const PlaceholderPosition PositionInt64 = 0

// Event is an immutable record of the log: identifier, position, type,
// timestamp, ordered list of tags and an opaque pre-serialized payload.
//
// It is built on scalars to be completely agnostic of the implementation of
// domain events in the client code. Duplicate tags are permitted and preserved.
//
// While its properties are exported, it should only be constructed with the
// supplied factory methods:
//   - BuildEvent
//   - BuildEventWithPosition
type Event struct {
	ID         string
	Position   PositionInt64
	EventType  EventTypeString
	OccurredAt time.Time
	Tags       []Tag
	Payload    []byte
}

// BuildEvent is the factory method for a new, not-yet-appended Event.
//
// It allocates a fresh id, sets OccurredAt to the current time and stamps
// PlaceholderPosition. The payload must already be valid JSON; it is stored
// byte-stable and never re-serialized.
func BuildEvent(eventType EventTypeString, tags []Tag, payload []byte) (Event, error) {
	return BuildEventWithPosition(uuid.NewString(), PlaceholderPosition, eventType, time.Now(), tags, payload)
}

// BuildEventWithPosition is the fully specified factory method for Event.
//
// It is used when rehydrating events from storage and by the engines to stamp
// the authoritative position before storing. It applies the same validation as
// BuildEvent plus non-empty id and non-negative position checks.
func BuildEventWithPosition(
	id string,
	position PositionInt64,
	eventType EventTypeString,
	occurredAt time.Time,
	tags []Tag,
	payload []byte,
) (Event, error) {

	if strings.TrimSpace(id) == "" {
		return Event{}, ErrEmptyEventID
	}

	if position < 0 {
		return Event{}, ErrNegativePosition
	}

	if strings.TrimSpace(eventType) == "" {
		return Event{}, ErrEmptyEventType
	}

	if tags == nil {
		return Event{}, ErrNilTags
	}

	if payload == nil {
		return Event{}, ErrNilPayload
	}

	if !jsoniter.ConfigFastest.Valid(payload) {
		return Event{}, ErrInvalidPayloadJSON
	}

	return Event{
		ID:         id,
		Position:   position,
		EventType:  eventType,
		OccurredAt: occurredAt,
		Tags:       slices.Clone(tags),
		Payload:    payload,
	}, nil
}

// HasTag reports whether the event carries the given tag (structural equality).
// Duplicate tags on the event do not change the result.
func (e Event) HasTag(tag Tag) bool {
	return slices.Contains(e.Tags, tag)
}

// CountTag returns how many instances of the given tag the event carries.
// Duplicates are preserved at build time, so this can be greater than one.
func (e Event) CountTag(tag Tag) int {
	count := 0
	for _, t := range e.Tags {
		if t == tag {
			count++
		}
	}

	return count
}
