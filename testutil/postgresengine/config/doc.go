// Package config provides database connection configuration for Postgres
// engine tests: one helper per supported adapter (pgx pool, database/sql with
// lib/pq, sqlx), all pointing at the local test database.
package config
