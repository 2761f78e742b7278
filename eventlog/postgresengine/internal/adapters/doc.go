// Package adapters provides database adapter implementations for the postgres
// event log engine, wrapping pgx pools, database/sql and sqlx connections
// behind one small interface.
package adapters
