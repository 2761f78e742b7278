package eventlog

import (
	"errors"
	"strings"
)

type EntityTypeString = string
type EntityIDString = string

var ErrEmptyTagEntity = errors.New("tag entity must not be empty")
var ErrEmptyTagID = errors.New("tag id must not be empty")

// Tag correlates an event with a business entity, e.g. ("student", "s1").
//
// It is an immutable value type with structural equality, safe to use as a map
// key and for membership tests. It should only be constructed with NewTag.
type Tag struct {
	entity EntityTypeString
	id     EntityIDString
}

// NewTag is the factory method for Tag.
//
// Both entity and id are trimmed of surrounding whitespace and must not be
// empty afterwards.
func NewTag(entity EntityTypeString, id EntityIDString) (Tag, error) {
	entity = strings.TrimSpace(entity)
	id = strings.TrimSpace(id)

	if entity == "" {
		return Tag{}, ErrEmptyTagEntity
	}

	if id == "" {
		return Tag{}, ErrEmptyTagID
	}

	return Tag{entity: entity, id: id}, nil
}

func (t Tag) Entity() EntityTypeString {
	return t.entity
}

func (t Tag) ID() EntityIDString {
	return t.id
}

// String renders the tag in the canonical "entity:id" form.
func (t Tag) String() string {
	return t.entity + ":" + t.id
}

// IsZero reports whether the tag is the zero value, i.e. was not constructed
// with NewTag.
func (t Tag) IsZero() bool {
	return t == Tag{}
}
