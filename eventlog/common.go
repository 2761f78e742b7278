package eventlog

import (
	"errors"
)

var ErrEmptyTableNameSupplied = errors.New("empty eventTableName supplied")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrConcurrencyConflict = errors.New("concurrency conflict, the log advanced since the position was last read")
var ErrQueryingEventsFailed = errors.New("querying events failed")
var ErrAppendingEventFailed = errors.New("appending event failed")
var ErrReadingPositionFailed = errors.New("reading current position failed")
var ErrBuildingQueryFailed = errors.New("building database query failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")
var ErrBuildingStoredEventFailed = errors.New("building event from database row failed")

// PositionInt64 is a type alias for int64, representing the zero-based position
// of an event within the log. The log's current position equals its length and
// doubles as the optimistic concurrency token for appends.
type PositionInt64 = int64
