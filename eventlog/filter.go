package eventlog

import (
	"errors"
	"slices"
	"strings"
)

var ErrEmptySpecificationEventType = errors.New("specification event type must not be empty")
var ErrNoSpecificationTags = errors.New("specification needs at least one tag")
var ErrZeroValueTag = errors.New("specification tags must not contain zero value tags")

// Specification is a single filter predicate over event type and tag
// membership. An event either satisfies a Specification or it does not.
//
// A Specification is constructed with one of the factory methods:
//   - SpecOfEventType: event type only
//   - SpecOfTag: a single tag
//   - SpecOfAllTags: all listed tags must be present on a candidate event
//   - SpecOfAnyTag: at least one listed tag must be present
//   - SpecOfEventTypeAndAllTags / SpecOfEventTypeAndAnyTag: both combined
//
// The zero value Specification has neither event type nor tags and matches
// every event (identity filter).
type Specification struct {
	eventType   EventTypeString
	tags        []Tag
	matchAnyTag bool
}

func (s Specification) EventType() EventTypeString {
	return s.eventType
}

func (s Specification) Tags() []Tag {
	return s.tags
}

func (s Specification) MatchAnyTag() bool {
	return s.matchAnyTag
}

// SpecOfEventType creates a Specification matching events of the given type.
func SpecOfEventType(eventType EventTypeString) (Specification, error) {
	if strings.TrimSpace(eventType) == "" {
		return Specification{}, ErrEmptySpecificationEventType
	}

	return newSpecification(eventType, nil, false)
}

// SpecOfTag creates a Specification matching events carrying the given tag.
func SpecOfTag(tag Tag) (Specification, error) {
	return newSpecification("", []Tag{tag}, false)
}

// SpecOfAllTags creates a Specification matching events carrying every one of
// the given tags.
func SpecOfAllTags(tag Tag, tags ...Tag) (Specification, error) {
	return newSpecification("", append([]Tag{tag}, tags...), false)
}

// SpecOfAnyTag creates a Specification matching events carrying at least one
// of the given tags.
func SpecOfAnyTag(tag Tag, tags ...Tag) (Specification, error) {
	return newSpecification("", append([]Tag{tag}, tags...), true)
}

// SpecOfEventTypeAndAllTags creates a Specification matching events of the
// given type that carry every one of the given tags.
func SpecOfEventTypeAndAllTags(eventType EventTypeString, tag Tag, tags ...Tag) (Specification, error) {
	if strings.TrimSpace(eventType) == "" {
		return Specification{}, ErrEmptySpecificationEventType
	}

	return newSpecification(eventType, append([]Tag{tag}, tags...), false)
}

// SpecOfEventTypeAndAnyTag creates a Specification matching events of the
// given type that carry at least one of the given tags.
func SpecOfEventTypeAndAnyTag(eventType EventTypeString, tag Tag, tags ...Tag) (Specification, error) {
	if strings.TrimSpace(eventType) == "" {
		return Specification{}, ErrEmptySpecificationEventType
	}

	return newSpecification(eventType, append([]Tag{tag}, tags...), true)
}

// newSpecification is the private full constructor all factories delegate to.
func newSpecification(eventType EventTypeString, tags []Tag, matchAnyTag bool) (Specification, error) {
	if tags != nil {
		if len(tags) == 0 {
			return Specification{}, ErrNoSpecificationTags
		}

		for _, tag := range tags {
			if tag.IsZero() {
				return Specification{}, ErrZeroValueTag
			}
		}
	}

	return Specification{
		eventType:   eventType,
		tags:        slices.Clip(tags),
		matchAnyTag: matchAnyTag,
	}, nil
}

// Matches reports whether the event satisfies this Specification.
//
// The event type check runs first and short-circuits: an event failing it is
// excluded regardless of tag overlap. Tag membership is structural; duplicate
// tags on the event never change the result.
func (s Specification) Matches(event Event) bool {
	if s.eventType != "" && s.eventType != event.EventType {
		return false
	}

	if len(s.tags) > 0 {
		if s.matchAnyTag {
			return s.matchesAnyTag(event)
		}

		return s.matchesAllTags(event)
	}

	return true
}

func (s Specification) matchesAnyTag(event Event) bool {
	for _, tag := range s.tags {
		if slices.Contains(event.Tags, tag) {
			return true
		}
	}

	return false
}

func (s Specification) matchesAllTags(event Event) bool {
	for _, tag := range s.tags {
		if !slices.Contains(event.Tags, tag) {
			return false
		}
	}

	return true
}
