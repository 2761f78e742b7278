package eventlog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

func Test_QueryBuilder_Defaults(t *testing.T) {
	query, err := eventlog.BuildQuery().Finalize()

	require.NoError(t, err)
	assert.Empty(t, query.Specifications())
	assert.Equal(t, eventlog.PositionInt64(0), query.FromPosition())
	assert.Equal(t, eventlog.PageSizeInt32(0), query.PageSize())
}

func Test_QueryBuilder_AccumulatesSpecifications(t *testing.T) {
	courseTag, err := eventlog.NewTag("course", "c1")
	require.NoError(t, err)

	typeSpec, err := eventlog.SpecOfEventType("StudentSubscribedToCourse")
	require.NoError(t, err)

	tagSpec, err := eventlog.SpecOfTag(courseTag)
	require.NoError(t, err)

	query, err := eventlog.BuildQuery().
		Matching(typeSpec).
		Matching(tagSpec).
		FromPosition(5).
		WithPageSize(100).
		Finalize()

	require.NoError(t, err)
	assert.Len(t, query.Specifications(), 2)
	assert.Equal(t, eventlog.PositionInt64(5), query.FromPosition())
	assert.Equal(t, eventlog.PageSizeInt32(100), query.PageSize())
}

func Test_QueryBuilder_DuplicateSpecificationsAreKept(t *testing.T) {
	typeSpec, err := eventlog.SpecOfEventType("CourseDefined")
	require.NoError(t, err)

	query, err := eventlog.BuildQuery().
		Matching(typeSpec).
		Matching(typeSpec).
		Finalize()

	require.NoError(t, err)
	assert.Len(t, query.Specifications(), 2)
}

func Test_QueryBuilder_InvalidBounds(t *testing.T) {
	tests := []struct {
		name        string
		build       func() (eventlog.Query, error)
		expectedErr error
	}{
		{
			name: "negative_from_position",
			build: func() (eventlog.Query, error) {
				return eventlog.BuildQuery().FromPosition(-1).Finalize()
			},
			expectedErr: eventlog.ErrNegativeFromPosition,
		},
		{
			name: "zero_page_size",
			build: func() (eventlog.Query, error) {
				return eventlog.BuildQuery().WithPageSize(0).Finalize()
			},
			expectedErr: eventlog.ErrNonPositivePageSize,
		},
		{
			name: "negative_page_size",
			build: func() (eventlog.Query, error) {
				return eventlog.BuildQuery().WithPageSize(-10).Finalize()
			},
			expectedErr: eventlog.ErrNonPositivePageSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_QueryBuilder_CollectsMultipleErrors(t *testing.T) {
	_, err := eventlog.BuildQuery().
		FromPosition(-1).
		WithPageSize(0).
		Finalize()

	assert.ErrorIs(t, err, eventlog.ErrNegativeFromPosition)
	assert.ErrorIs(t, err, eventlog.ErrNonPositivePageSize)
}

func Test_QueryBuilder_ValueSemantics(t *testing.T) {
	typeSpec, err := eventlog.SpecOfEventType("CourseDefined")
	require.NoError(t, err)

	base := eventlog.BuildQuery().Matching(typeSpec)

	bounded, err := base.WithPageSize(10).Finalize()
	require.NoError(t, err)

	unbounded, err := base.Finalize()
	require.NoError(t, err)

	assert.Equal(t, eventlog.PageSizeInt32(10), bounded.PageSize())
	assert.Equal(t, eventlog.PageSizeInt32(0), unbounded.PageSize())
}
