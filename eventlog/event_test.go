package eventlog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

func Test_BuildEvent_ValidInput(t *testing.T) {
	courseTag, err := eventlog.NewTag("course", "c1")
	require.NoError(t, err)

	payload := []byte(`{"courseId": "c1", "capacity": 30}`)

	event, err := eventlog.BuildEvent("CourseDefined", []eventlog.Tag{courseTag}, payload)

	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, eventlog.PlaceholderPosition, event.Position)
	assert.Equal(t, "CourseDefined", event.EventType)
	assert.WithinDuration(t, time.Now(), event.OccurredAt, time.Second)
	assert.Equal(t, []eventlog.Tag{courseTag}, event.Tags)
	assert.Equal(t, payload, event.Payload)
}

func Test_BuildEvent_PayloadStoredByteStable(t *testing.T) {
	courseTag, err := eventlog.NewTag("course", "c1")
	require.NoError(t, err)

	// unusual key order and spacing must survive untouched
	payload := []byte(`{"z":  1,"a":2}`)

	event, err := eventlog.BuildEvent("CourseDefined", []eventlog.Tag{courseTag}, payload)

	require.NoError(t, err)
	assert.Equal(t, payload, event.Payload)
}

func Test_BuildEvent_EmptyTagListIsAllowed(t *testing.T) {
	event, err := eventlog.BuildEvent("SystemStarted", []eventlog.Tag{}, []byte(`{}`))

	require.NoError(t, err)
	assert.Empty(t, event.Tags)
}

func Test_BuildEvent_DuplicateTagsArePreserved(t *testing.T) {
	courseTag, err := eventlog.NewTag("course", "c1")
	require.NoError(t, err)

	event, err := eventlog.BuildEvent("CourseDefined", []eventlog.Tag{courseTag, courseTag}, []byte(`{}`))

	require.NoError(t, err)
	assert.Len(t, event.Tags, 2)
	assert.Equal(t, 2, event.CountTag(courseTag))
	assert.True(t, event.HasTag(courseTag))
}

func Test_BuildEvent_InvalidInput(t *testing.T) {
	courseTag, buildTagErr := eventlog.NewTag("course", "c1")
	require.NoError(t, buildTagErr)

	validTags := []eventlog.Tag{courseTag}

	tests := []struct {
		name        string
		eventType   string
		tags        []eventlog.Tag
		payload     []byte
		expectedErr error
	}{
		{
			name:        "empty_event_type",
			eventType:   "",
			tags:        validTags,
			payload:     []byte(`{}`),
			expectedErr: eventlog.ErrEmptyEventType,
		},
		{
			name:        "whitespace_only_event_type",
			eventType:   "  ",
			tags:        validTags,
			payload:     []byte(`{}`),
			expectedErr: eventlog.ErrEmptyEventType,
		},
		{
			name:        "nil_tags",
			eventType:   "CourseDefined",
			tags:        nil,
			payload:     []byte(`{}`),
			expectedErr: eventlog.ErrNilTags,
		},
		{
			name:        "nil_payload",
			eventType:   "CourseDefined",
			tags:        validTags,
			payload:     nil,
			expectedErr: eventlog.ErrNilPayload,
		},
		{
			name:        "malformed_payload_json",
			eventType:   "CourseDefined",
			tags:        validTags,
			payload:     []byte(`{"broken":`),
			expectedErr: eventlog.ErrInvalidPayloadJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eventlog.BuildEvent(tt.eventType, tt.tags, tt.payload)

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_BuildEventWithPosition_InvalidInput(t *testing.T) {
	courseTag, buildTagErr := eventlog.NewTag("course", "c1")
	require.NoError(t, buildTagErr)

	occurredAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty_id", func(t *testing.T) {
		_, err := eventlog.BuildEventWithPosition(
			"", 0, "CourseDefined", occurredAt, []eventlog.Tag{courseTag}, []byte(`{}`))

		assert.ErrorIs(t, err, eventlog.ErrEmptyEventID)
	})

	t.Run("negative_position", func(t *testing.T) {
		_, err := eventlog.BuildEventWithPosition(
			"some-id", -1, "CourseDefined", occurredAt, []eventlog.Tag{courseTag}, []byte(`{}`))

		assert.ErrorIs(t, err, eventlog.ErrNegativePosition)
	})
}

func Test_BuildEvent_TagsAreCopied(t *testing.T) {
	courseTag, err := eventlog.NewTag("course", "c1")
	require.NoError(t, err)

	studentTag, err := eventlog.NewTag("student", "s1")
	require.NoError(t, err)

	tags := []eventlog.Tag{courseTag}

	event, err := eventlog.BuildEvent("CourseDefined", tags, []byte(`{}`))
	require.NoError(t, err)

	// mutating the caller's slice must not affect the event
	tags[0] = studentTag

	assert.True(t, event.HasTag(courseTag))
	assert.False(t, event.HasTag(studentTag))
}
