package toolapi

import (
	"time"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// TagJSON is the wire shape of a single tag.
type TagJSON struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// EventJSON is the wire shape of a stored event. The payload travels as a
// pre-serialized JSON string in Data; the engine never re-serializes it.
type EventJSON struct {
	ID        string    `json:"id"`
	Position  int64     `json:"position"`
	EventType string    `json:"eventType"`
	Timestamp string    `json:"timestamp"`
	Tags      []TagJSON `json:"tags"`
	Data      string    `json:"data"`
}

// NewEventJSON is the wire shape of a not-yet-appended event: the engine
// allocates id, timestamp and position.
type NewEventJSON struct {
	EventType string    `json:"eventType"`
	Tags      []TagJSON `json:"tags"`
	Data      string    `json:"data"`
}

// SpecificationJSON is the wire shape of a single filter specification.
type SpecificationJSON struct {
	Type        string    `json:"type,omitempty"`
	Tags        []TagJSON `json:"tags,omitempty"`
	MatchAnyTag bool      `json:"matchAnyTag,omitempty"`
}

// QueryJSON is the wire shape of a query.
type QueryJSON struct {
	Specifications []SpecificationJSON `json:"specifications,omitempty"`
	FromPosition   *int64              `json:"fromPosition,omitempty"`
	PageSize       *int32              `json:"pageSize,omitempty"`
}

// AppendParamsJSON is the input of the append_event tool.
type AppendParamsJSON struct {
	Event             NewEventJSON `json:"event"`
	Query             QueryJSON    `json:"query"`
	LastKnownPosition int64        `json:"lastKnownPosition"`
}

// QueryResultJSON is the output of the query_events tool.
type QueryResultJSON struct {
	Events []EventJSON `json:"events"`
}

// PositionResultJSON is the output of the get_current_position tool.
type PositionResultJSON struct {
	Position int64 `json:"position"`
}

func tagsFromJSON(rawTags []TagJSON) ([]eventlog.Tag, error) {
	if rawTags == nil {
		return nil, nil
	}

	tags := make([]eventlog.Tag, 0, len(rawTags))
	for _, rawTag := range rawTags {
		tag, err := eventlog.NewTag(rawTag.Entity, rawTag.ID)
		if err != nil {
			return nil, err
		}

		tags = append(tags, tag)
	}

	return tags, nil
}

func tagsToJSON(tags []eventlog.Tag) []TagJSON {
	rawTags := make([]TagJSON, 0, len(tags))
	for _, tag := range tags {
		rawTags = append(rawTags, TagJSON{Entity: tag.Entity(), ID: tag.ID()})
	}

	return rawTags
}

func eventToJSON(event eventlog.Event) EventJSON {
	return EventJSON{
		ID:        event.ID,
		Position:  event.Position,
		EventType: event.EventType,
		Timestamp: event.OccurredAt.UTC().Format(time.RFC3339Nano),
		Tags:      tagsToJSON(event.Tags),
		Data:      string(event.Payload),
	}
}

func eventFromNewEventJSON(raw NewEventJSON) (eventlog.Event, error) {
	tags, tagsErr := tagsFromJSON(raw.Tags)
	if tagsErr != nil {
		return eventlog.Event{}, tagsErr
	}

	if tags == nil {
		tags = make([]eventlog.Tag, 0)
	}

	return eventlog.BuildEvent(raw.EventType, tags, []byte(raw.Data))
}

func specificationFromJSON(raw SpecificationJSON) (eventlog.Specification, error) {
	tags, tagsErr := tagsFromJSON(raw.Tags)
	if tagsErr != nil {
		return eventlog.Specification{}, tagsErr
	}

	switch {
	case raw.Type != "" && len(tags) > 0 && raw.MatchAnyTag:
		return eventlog.SpecOfEventTypeAndAnyTag(raw.Type, tags[0], tags[1:]...)

	case raw.Type != "" && len(tags) > 0:
		return eventlog.SpecOfEventTypeAndAllTags(raw.Type, tags[0], tags[1:]...)

	case len(tags) > 0 && raw.MatchAnyTag:
		return eventlog.SpecOfAnyTag(tags[0], tags[1:]...)

	case len(tags) > 0:
		return eventlog.SpecOfAllTags(tags[0], tags[1:]...)

	case raw.Type != "":
		return eventlog.SpecOfEventType(raw.Type)

	default:
		// neither type nor tags: the identity filter
		return eventlog.Specification{}, nil
	}
}

func queryFromJSON(raw QueryJSON) (eventlog.Query, error) {
	queryBuilder := eventlog.BuildQuery()

	for _, rawSpecification := range raw.Specifications {
		specification, specErr := specificationFromJSON(rawSpecification)
		if specErr != nil {
			return eventlog.Query{}, specErr
		}

		queryBuilder = queryBuilder.Matching(specification)
	}

	if raw.FromPosition != nil {
		queryBuilder = queryBuilder.FromPosition(*raw.FromPosition)
	}

	if raw.PageSize != nil {
		queryBuilder = queryBuilder.WithPageSize(*raw.PageSize)
	}

	return queryBuilder.Finalize()
}
