package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
	"github.com/dcbkit/tagged-eventlog-go/eventlog/postgresengine/internal/adapters"
)

const (
	defaultEventTableName = "events"

	colPosition   = "position"
	colEventID    = "event_id"
	colEventType  = "event_type"
	colOccurredAt = "occurred_at"
	colTags       = "tags"
	colPayload    = "payload"

	cteCurrent           = "current"
	aliasCurrentPosition = "current_position"
	dialectPostgres      = "postgres"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
)

// tagJSON is the jsonb shape of a single tag inside the tags column.
type tagJSON struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// queryResultRow carries one scanned row of the events table.
type queryResultRow struct {
	position   int64
	eventID    string
	eventType  string
	occurredAt time.Time
	tags       []byte
	payload    []byte
}

// EventLog is the Postgres-backed event log engine. It leverages a database
// adapter and supports customizable logging, metrics, tracing and event table
// configuration.
type EventLog struct {
	db               adapters.DBAdapter
	eventTableName   string
	logger           eventlog.Logger
	contextualLogger eventlog.ContextualLogger
	metricsCollector eventlog.MetricsCollector
	tracingCollector eventlog.TracingCollector
}

// NewEventLogFromPGXPool creates a new EventLog using a pgx pool with optional configuration.
func NewEventLogFromPGXPool(db *pgxpool.Pool, options ...Option) (*EventLog, error) {
	if db == nil {
		return nil, eventlog.ErrNilDatabaseConnection
	}

	return newEventLog(adapters.NewPGXAdapter(db), options...)
}

// NewEventLogFromPGXPoolAndReplica creates a new EventLog using a primary pgx
// pool plus a read replica pool. Queries are routed to the replica only when
// the context carries eventlog.EventualConsistency.
func NewEventLogFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*EventLog, error) {
	if db == nil || replica == nil {
		return nil, eventlog.ErrNilDatabaseConnection
	}

	return newEventLog(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEventLogFromSQLDB creates a new EventLog using a sql.DB with optional configuration.
func NewEventLogFromSQLDB(db *sql.DB, options ...Option) (*EventLog, error) {
	if db == nil {
		return nil, eventlog.ErrNilDatabaseConnection
	}

	return newEventLog(adapters.NewSQLAdapter(db), options...)
}

// NewEventLogFromSQLX creates a new EventLog using a sqlx.DB with optional configuration.
func NewEventLogFromSQLX(db *sqlx.DB, options ...Option) (*EventLog, error) {
	if db == nil {
		return nil, eventlog.ErrNilDatabaseConnection
	}

	return newEventLog(adapters.NewSQLXAdapter(db), options...)
}

func newEventLog(db adapters.DBAdapter, options ...Option) (*EventLog, error) {
	el := &EventLog{
		db:             db,
		eventTableName: defaultEventTableName,
	}

	for _, option := range options {
		if err := option(el); err != nil {
			return nil, err
		}
	}

	return el, nil
}

// Query retrieves the events matching the eventlog.Query criteria in
// ascending position order: AND across specifications, FromPosition as
// inclusive lower bound, PageSize as LIMIT.
func (el *EventLog) Query(ctx context.Context, query eventlog.Query) (eventlog.Events, error) {
	start := time.Now()
	ctx, span := el.startSpan(ctx, spanNameQuery, map[string]string{
		spanAttrOperation: logActionQuery,
	})

	sqlQuery, buildQueryErr := el.buildSelectQuery(query)
	if buildQueryErr != nil {
		el.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)
		el.finishSpanWithError(span, errorTypeQueryBuild)

		return nil, buildQueryErr
	}

	rows, queryErr := el.executeQuery(ctx, sqlQuery, start)
	if queryErr != nil {
		el.finishSpanWithError(span, errorTypeDatabase)

		return nil, queryErr
	}
	defer el.closeRows(ctx, rows)

	events, scanErr := el.processQueryResults(ctx, rows)
	if scanErr != nil {
		el.finishSpanWithError(span, errorTypeRowScan)

		return nil, scanErr
	}

	duration := time.Since(start)
	el.logOperation(ctx, logMsgQueryCompleted,
		logAttrEventCount, len(events),
		logAttrDurationMS, toMilliseconds(duration))
	el.recordDuration(ctx, metricQueryDuration, duration, map[string]string{spanAttrOperation: logActionQuery})
	el.finishSpan(span, statusOK)

	return events, nil
}

// Append attempts to append one eventlog.Event respecting the optimistic
// concurrency contract: the insert only takes effect when the log's current
// position (its row count) still equals lastKnownPosition, which also becomes
// the stored event's position. Zero rows affected means another writer
// advanced the log first and eventlog.ErrConcurrencyConflict is returned.
//
// The boundary eventlog.Query should be the one used for the query before
// making the business decision. The conflict guard is deliberately global and
// not scoped to the boundary's tags; the boundary is recorded for
// observability only.
func (el *EventLog) Append(
	ctx context.Context,
	event eventlog.Event,
	boundary eventlog.Query,
	lastKnownPosition eventlog.PositionInt64,
) (eventlog.Event, error) {

	start := time.Now()
	ctx, span := el.startSpan(ctx, spanNameAppend, map[string]string{
		spanAttrOperation: logActionAppend,
		logAttrEventType:  event.EventType,
	})

	// Stamping the position up front also revalidates the event before it
	// touches the database.
	stored, buildEventErr := eventlog.BuildEventWithPosition(
		event.ID, lastKnownPosition, event.EventType, event.OccurredAt, event.Tags, event.Payload)
	if buildEventErr != nil {
		el.finishSpanWithError(span, errorTypeValidation)

		return eventlog.Event{}, errors.Join(eventlog.ErrAppendingEventFailed, buildEventErr)
	}

	sqlQuery, buildQueryErr := el.buildAppendQuery(stored, lastKnownPosition)
	if buildQueryErr != nil {
		el.logError(ctx, logMsgBuildInsertQueryFailed, buildQueryErr, logAttrEventType, event.EventType)
		el.finishSpanWithError(span, errorTypeQueryBuild)

		return eventlog.Event{}, buildQueryErr
	}

	rowsAffected, execErr := el.executeAppendQuery(ctx, sqlQuery, start)
	if execErr != nil {
		el.finishSpanWithError(span, errorTypeDatabase)

		return eventlog.Event{}, execErr
	}

	if rowsAffected == 0 {
		el.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrExpectedPosition, lastKnownPosition,
			logAttrBoundarySpecCount, len(boundary.Specifications()))
		el.incrementCounter(ctx, metricConcurrencyConflicts, map[string]string{spanAttrOperation: logActionAppend})
		el.finishSpan(span, statusConflict)

		return eventlog.Event{}, eventlog.ErrConcurrencyConflict
	}

	duration := time.Since(start)
	el.logOperation(ctx, logMsgEventAppended,
		logAttrEventType, stored.EventType,
		logAttrPosition, stored.Position,
		logAttrDurationMS, toMilliseconds(duration))
	el.recordDuration(ctx, metricAppendDuration, duration, map[string]string{spanAttrOperation: logActionAppend})
	el.finishSpan(span, statusOK)

	return stored, nil
}

// CurrentPosition returns the number of events appended so far, i.e. the
// position the next event will receive. It always reads from the primary.
func (el *EventLog) CurrentPosition(ctx context.Context) (eventlog.PositionInt64, error) {
	sqlQuery, buildQueryErr := el.buildCurrentPositionQuery()
	if buildQueryErr != nil {
		el.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)

		return 0, buildQueryErr
	}

	// Position reads seed append tokens, so they must not see replica lag.
	rows, queryErr := el.executeQuery(eventlog.WithStrongConsistency(ctx), sqlQuery, time.Now())
	if queryErr != nil {
		return 0, errors.Join(eventlog.ErrReadingPositionFailed, queryErr)
	}
	defer el.closeRows(ctx, rows)

	var position eventlog.PositionInt64

	if rows.Next() {
		if scanErr := rows.Scan(&position); scanErr != nil {
			el.logError(ctx, logMsgScanRowFailed, scanErr)

			return 0, errors.Join(eventlog.ErrReadingPositionFailed, eventlog.ErrScanningDBRowFailed, scanErr)
		}
	}

	return position, nil
}

// executeQuery executes the SQL query and logs it with timing information.
func (el *EventLog) executeQuery(ctx context.Context, sqlQuery string, start time.Time) (adapters.DBRows, error) {
	rows, queryErr := el.db.Query(ctx, sqlQuery)
	el.logQueryWithDuration(ctx, sqlQuery, logActionQuery, time.Since(start))

	if queryErr != nil {
		el.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(eventlog.ErrQueryingEventsFailed, queryErr)
	}

	return rows, nil
}

// closeRows safely closes database rows and logs any errors.
func (el *EventLog) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		el.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// processQueryResults converts database rows into stored events.
func (el *EventLog) processQueryResults(ctx context.Context, rows adapters.DBRows) (eventlog.Events, error) {
	result := queryResultRow{}
	events := make(eventlog.Events, 0)

	for rows.Next() {
		rowScanErr := rows.Scan(
			&result.position, &result.eventID, &result.eventType, &result.occurredAt, &result.tags, &result.payload)
		if rowScanErr != nil {
			el.logError(ctx, logMsgScanRowFailed, rowScanErr)

			return nil, errors.Join(eventlog.ErrScanningDBRowFailed, rowScanErr)
		}

		event, buildErr := el.buildStoredEvent(result)
		if buildErr != nil {
			el.logError(ctx, logMsgBuildStoredEventFailed, buildErr, logAttrEventType, result.eventType)

			return nil, errors.Join(eventlog.ErrBuildingStoredEventFailed, buildErr)
		}

		events = append(events, event)
	}

	return events, nil
}

// buildStoredEvent rehydrates an eventlog.Event from one scanned row.
func (el *EventLog) buildStoredEvent(row queryResultRow) (eventlog.Event, error) {
	var rawTags []tagJSON
	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(row.tags, &rawTags); unmarshalErr != nil {
		return eventlog.Event{}, unmarshalErr
	}

	tags := make([]eventlog.Tag, 0, len(rawTags))
	for _, rawTag := range rawTags {
		tag, tagErr := eventlog.NewTag(rawTag.Entity, rawTag.ID)
		if tagErr != nil {
			return eventlog.Event{}, tagErr
		}

		tags = append(tags, tag)
	}

	return eventlog.BuildEventWithPosition(
		row.eventID, row.position, row.eventType, row.occurredAt, tags, row.payload)
}

// executeAppendQuery executes the SQL append statement and returns rows affected.
func (el *EventLog) executeAppendQuery(ctx context.Context, sqlQuery string, start time.Time) (rowsAffectedInt64, error) {
	tag, execErr := el.db.Exec(ctx, sqlQuery)
	el.logQueryWithDuration(ctx, sqlQuery, logActionAppend, time.Since(start))

	if execErr != nil {
		el.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)

		return 0, errors.Join(eventlog.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		el.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)

		return 0, errors.Join(eventlog.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

func (el *EventLog) buildSelectQuery(query eventlog.Query) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(el.eventTableName).
		Select(colPosition, colEventID, colEventType, colOccurredAt, colTags, colPayload).
		Order(goqu.I(colPosition).Asc())

	selectStmt, whereErr := el.addWhereClause(query, selectStmt)
	if whereErr != nil {
		return "", whereErr
	}

	if query.PageSize() > 0 {
		selectStmt = selectStmt.Limit(uint(query.PageSize()))
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventlog.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildAppendQuery builds the conditional INSERT ... SELECT guarded by a CTE
// over the log's row count. The guard is the whole table, not the boundary
// query, mirroring the engine's global concurrency contract.
func (el *EventLog) buildAppendQuery(
	stored eventlog.Event,
	lastKnownPosition eventlog.PositionInt64,
) (sqlQueryString, error) {

	tagsJSON, marshalErr := marshalTags(stored.Tags)
	if marshalErr != nil {
		return "", errors.Join(eventlog.ErrBuildingQueryFailed, marshalErr)
	}

	builder := goqu.Dialect(dialectPostgres)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(el.eventTableName).
		Select(goqu.COUNT(goqu.Star()).As(aliasCurrentPosition))

	// Define the SELECT for the INSERT
	selectStmt := builder.
		From(cteCurrent).
		Select(
			goqu.V(stored.Position),
			goqu.V(stored.ID),
			goqu.V(stored.EventType),
			goqu.V(stored.OccurredAt),
			goqu.V(string(tagsJSON)),
			goqu.V(string(stored.Payload)),
		).
		Where(goqu.C(aliasCurrentPosition).Eq(goqu.V(lastKnownPosition)))

	// Finalize the full INSERT query
	insertStmt := builder.
		Insert(el.eventTableName).
		Cols(colPosition, colEventID, colEventType, colOccurredAt, colTags, colPayload).
		FromQuery(selectStmt).
		With(cteCurrent, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventlog.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (el *EventLog) buildCurrentPositionQuery() (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(el.eventTableName).
		Select(goqu.COUNT(goqu.Star()).As(aliasCurrentPosition))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventlog.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// addWhereClause compiles the query's specifications into AND-combined
// expressions: event type equality plus per-tag jsonb containment, joined
// with AND (all tags) or OR (any tag) within one specification.
func (el *EventLog) addWhereClause(query eventlog.Query, selectStmt *goqu.SelectDataset) (*goqu.SelectDataset, error) {
	specificationExpressions := make([]goqu.Expression, 0)

	for _, specification := range query.Specifications() {
		partExpressions := make([]goqu.Expression, 0)

		if specification.EventType() != "" {
			partExpressions = append(partExpressions, goqu.Ex{colEventType: specification.EventType()})
		}

		tagExpressions := make([]goqu.Expression, 0)
		for _, tag := range specification.Tags() {
			tagExpression, tagErr := tagContainmentExpression(tag)
			if tagErr != nil {
				return nil, errors.Join(eventlog.ErrBuildingQueryFailed, tagErr)
			}

			tagExpressions = append(tagExpressions, tagExpression)
		}

		if len(tagExpressions) > 0 {
			if specification.MatchAnyTag() {
				partExpressions = append(partExpressions, goqu.Or(tagExpressions...))
			} else {
				partExpressions = append(partExpressions, goqu.And(tagExpressions...))
			}
		}

		// an empty specification matches every event
		if len(partExpressions) > 0 {
			specificationExpressions = append(specificationExpressions, goqu.And(partExpressions...))
		}
	}

	if len(specificationExpressions) > 0 {
		selectStmt = selectStmt.Where(goqu.And(specificationExpressions...))
	}

	if query.FromPosition() > 0 {
		selectStmt = selectStmt.Where(goqu.C(colPosition).Gte(query.FromPosition()))
	}

	return selectStmt, nil
}

// tagContainmentExpression binds the tag as a goqu parameter so that tag
// values arriving from the wire cannot break out of the SQL literal.
func tagContainmentExpression(tag eventlog.Tag) (goqu.Expression, error) {
	containment, marshalErr := marshalTags([]eventlog.Tag{tag})
	if marshalErr != nil {
		return nil, marshalErr
	}

	return goqu.L(colTags+" @> ?", string(containment)), nil
}

func marshalTags(tags []eventlog.Tag) ([]byte, error) {
	rawTags := make([]tagJSON, 0, len(tags))
	for _, tag := range tags {
		rawTags = append(rawTags, tagJSON{Entity: tag.Entity(), ID: tag.ID()})
	}

	return jsoniter.ConfigFastest.Marshal(rawTags)
}
