package postgresengine_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
	"github.com/dcbkit/tagged-eventlog-go/eventlog/postgresengine"
	"github.com/dcbkit/tagged-eventlog-go/testutil/postgresengine/config"
)

// openLazySQLDB opens a sql.DB against the test database DSN without
// connecting; sql.Open is lazy, so no database has to be running.
func openLazySQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, openErr := sql.Open("postgres", config.PostgresSingleDSN())
	require.NoError(t, openErr)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func Test_Constructors_RejectNilConnections(t *testing.T) {
	t.Run("nil_pgx_pool", func(t *testing.T) {
		_, err := postgresengine.NewEventLogFromPGXPool(nil)

		assert.ErrorIs(t, err, eventlog.ErrNilDatabaseConnection)
	})

	t.Run("nil_pgx_primary_with_replica", func(t *testing.T) {
		_, err := postgresengine.NewEventLogFromPGXPoolAndReplica(nil, nil)

		assert.ErrorIs(t, err, eventlog.ErrNilDatabaseConnection)
	})

	t.Run("nil_sql_db", func(t *testing.T) {
		_, err := postgresengine.NewEventLogFromSQLDB(nil)

		assert.ErrorIs(t, err, eventlog.ErrNilDatabaseConnection)
	})

	t.Run("nil_sqlx_db", func(t *testing.T) {
		_, err := postgresengine.NewEventLogFromSQLX(nil)

		assert.ErrorIs(t, err, eventlog.ErrNilDatabaseConnection)
	})
}

func Test_Constructors_AcceptConfiguredConnections(t *testing.T) {
	t.Run("sql_db", func(t *testing.T) {
		log, err := postgresengine.NewEventLogFromSQLDB(openLazySQLDB(t))

		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("sqlx_db", func(t *testing.T) {
		// sqlx.NewDb wraps without connecting, unlike sqlx.Connect
		db := sqlx.NewDb(openLazySQLDB(t), "postgres")

		log, err := postgresengine.NewEventLogFromSQLX(db)

		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("pgx_pool", func(t *testing.T) {
		pool, poolErr := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolSingleConfig())
		require.NoError(t, poolErr)
		t.Cleanup(pool.Close)

		log, err := postgresengine.NewEventLogFromPGXPool(pool)

		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("pgx_pool_with_replica", func(t *testing.T) {
		primary, primaryErr := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolPrimaryConfig())
		require.NoError(t, primaryErr)
		t.Cleanup(primary.Close)

		replica, replicaErr := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolReplicaConfig())
		require.NoError(t, replicaErr)
		t.Cleanup(replica.Close)

		log, err := postgresengine.NewEventLogFromPGXPoolAndReplica(primary, replica)

		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}

func Test_PGXPoolConfigs_CarryTunedSettings(t *testing.T) {
	poolConfig := config.PostgresPGXPoolSingleConfig()

	assert.Equal(t, int32(50), poolConfig.MaxConns)
	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, time.Hour, poolConfig.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
	assert.Equal(t, "eventlog", poolConfig.ConnConfig.Database)

	primaryConfig := config.PostgresPGXPoolPrimaryConfig()
	replicaConfig := config.PostgresPGXPoolReplicaConfig()

	assert.NotEqual(t, primaryConfig.ConnConfig.Port, replicaConfig.ConnConfig.Port)
}

func Test_WithTableName_RejectsEmptyName(t *testing.T) {
	_, err := postgresengine.NewEventLogFromSQLDB(openLazySQLDB(t), postgresengine.WithTableName(""))

	assert.ErrorIs(t, err, eventlog.ErrEmptyTableNameSupplied)
}

func Test_WithTableName_AcceptsCustomName(t *testing.T) {
	log, err := postgresengine.NewEventLogFromSQLDB(openLazySQLDB(t), postgresengine.WithTableName("domain_events"))

	require.NoError(t, err)
	assert.NotNil(t, log)
}

func Test_Append_RejectsNegativeTokenBeforeTouchingDatabase(t *testing.T) {
	log, buildErr := postgresengine.NewEventLogFromSQLDB(openLazySQLDB(t))
	require.NoError(t, buildErr)

	courseTag, tagErr := eventlog.NewTag("course", "c1")
	require.NoError(t, tagErr)

	event, eventErr := eventlog.BuildEvent("CourseDefined", []eventlog.Tag{courseTag}, []byte(`{}`))
	require.NoError(t, eventErr)

	// fails during validation, so the unreachable database is never contacted
	_, err := log.Append(context.Background(), event, eventlog.Query{}, -1)

	assert.ErrorIs(t, err, eventlog.ErrNegativePosition)
	assert.ErrorIs(t, err, eventlog.ErrAppendingEventFailed)
}
