package eventlog

import (
	"errors"
	"slices"
)

type PageSizeInt32 = int32

var ErrNonPositivePageSize = errors.New("page size must be a positive integer")
var ErrNegativeFromPosition = errors.New("from position must not be negative")

// Query combines an ordered list of Specification(s) with optional position
// and page bounds. Specifications are evaluated with AND semantics: an event
// must satisfy every one of them. This lets a caller express
// "type X AND tag A AND tag B" by adding three specifications, distinct from
// the intra-specification match mode which governs AND/OR among the tags of
// one Specification.
//
// A Query is immutable once built with QueryBuilder.Finalize. An empty
// specification list means "match everything", bounded only by FromPosition
// and PageSize.
type Query struct {
	specifications []Specification
	fromPosition   PositionInt64
	pageSize       PageSizeInt32
}

func (q Query) Specifications() []Specification {
	return q.specifications
}

// FromPosition is the inclusive lower bound on event positions; 0 means the
// whole log.
func (q Query) FromPosition() PositionInt64 {
	return q.fromPosition
}

// PageSize caps the number of events returned post-filter; 0 means unbounded.
// Pagination is driven by advancing FromPosition to lastSeenPosition+1, not by
// an opaque cursor.
func (q Query) PageSize() PageSizeInt32 {
	return q.pageSize
}

// QueryBuilder accumulates specifications and bounds for a Query.
//
// Validation failures (non-positive page size, negative from-position) are
// remembered and surfaced by Finalize, keeping the builder chain fluent.
type QueryBuilder struct {
	query Query
	err   error
}

// BuildQuery creates a QueryBuilder which must eventually be finalized with
// Finalize().
func BuildQuery() QueryBuilder {
	return QueryBuilder{}
}

// Matching appends a Specification to the Query. Duplicates are allowed and
// not merged.
func (qb QueryBuilder) Matching(specification Specification) QueryBuilder {
	qb.query.specifications = append(qb.query.specifications, specification)

	return qb
}

// FromPosition sets the inclusive lower position bound.
func (qb QueryBuilder) FromPosition(position PositionInt64) QueryBuilder {
	if position < 0 {
		qb.err = errors.Join(qb.err, ErrNegativeFromPosition)

		return qb
	}

	qb.query.fromPosition = position

	return qb
}

// WithPageSize caps the number of events a Query returns.
func (qb QueryBuilder) WithPageSize(pageSize PageSizeInt32) QueryBuilder {
	if pageSize <= 0 {
		qb.err = errors.Join(qb.err, ErrNonPositivePageSize)

		return qb
	}

	qb.query.pageSize = pageSize

	return qb
}

// Finalize freezes the accumulated state into an immutable Query, or returns
// the first validation error recorded while building.
func (qb QueryBuilder) Finalize() (Query, error) {
	if qb.err != nil {
		return Query{}, qb.err
	}

	qb.query.specifications = slices.Clip(qb.query.specifications)

	return qb.query, nil
}
