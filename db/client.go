package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// inMemoryDSN the working database only ever lives in memory; durability comes from
// snapshots
const inMemoryDSN = ":memory:"

// Client manages connections and transactions with the embedded DB
type Client interface {
	/*
		RunSQLInTransaction execute SQL calls within a transaction

			@param ctx context.Context - execution context
			@param coreLogic func(ctx context.Context, tx *gorm.DB) error - the callback to execute
	*/
	RunSQLInTransaction(
		ctx context.Context, coreLogic func(ctx context.Context, tx *gorm.DB) error,
	) error

	/*
		UseDatabase utilize a `Database` instance

			@param ctx context.Context - execution context
			@param coreLogic func(ctx context.Context, dbClient Database) error - the callback to execute
	*/
	UseDatabase(
		ctx context.Context, coreLogic func(ctx context.Context, dbClient Database) error,
	) error

	/*
		UseDatabaseInTransaction utilize a `Database` instance in a transaction

			@param ctx context.Context - execution context
			@param coreLogic func(ctx context.Context, dbClient Database) error - the callback to execute
	*/
	UseDatabaseInTransaction(
		ctx context.Context, coreLogic func(ctx context.Context, dbClient Database) error,
	) error

	/*
		ExportSnapshot serialize the entire database into one binary image

			@param ctx context.Context - execution context
			@returns the SQLite database image
	*/
	ExportSnapshot(ctx context.Context) ([]byte, error)

	// Close release the database. All unsaved state is lost.
	Close() error
}

// clientImpl implements Client
type clientImpl struct {
	goutils.Component
	db    *gorm.DB
	sqlDB *sql.DB
}

/*
NewConnection define a new in-memory SQL client

	@param ctx context.Context - execution context
	@param snapshot []byte - database image to start from. Empty starts a new database.
	@param dbLogLevel logger.LogLevel - SQL log level
	@return new client
*/
func NewConnection(
	ctx context.Context, snapshot []byte, dbLogLevel logger.LogLevel,
) (Client, error) {
	logTags := log.Fields{"package": "healthvault", "module": "db", "component": "sql-client"}

	db, err := gorm.Open(sqlite.Open(inMemoryDSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(dbLogLevel),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory DB [%w]", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access DB connection pool [%w]", err)
	}
	// Every connection to ":memory:" is a separate database, so hold exactly one
	// connection open for the life of the client.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	instance := &clientImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:    db,
		sqlDB: sqlDB,
	}

	if len(snapshot) > 0 {
		if err := importSnapshot(ctx, sqlDB, snapshot); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to restore DB snapshot [%w]", err)
		}
		log.WithFields(instance.GetLogTagsForContext(ctx)).
			WithField("bytes", len(snapshot)).
			Debug("Restored DB snapshot")
	}

	return instance, nil
}

/*
RunSQLInTransaction execute SQL calls within a transaction

	@param ctx context.Context - execution context
	@param coreLogic func(ctx context.Context, tx *gorm.DB) error - the callback to execute
*/
func (c *clientImpl) RunSQLInTransaction(
	ctx context.Context, coreLogic func(ctx context.Context, tx *gorm.DB) error,
) error {
	return classifyError(c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return coreLogic(ctx, tx)
	}))
}

/*
UseDatabase utilize a `Database` instance

	@param ctx context.Context - execution context
	@param coreLogic func(ctx context.Context, dbClient Database) error - the callback to execute
*/
func (c *clientImpl) UseDatabase(
	ctx context.Context, coreLogic func(ctx context.Context, dbClient Database) error,
) error {
	dbClient, err := newDatabase(ctx, c.db.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to define `Database` instance: [%w]", err)
	}
	return coreLogic(ctx, dbClient)
}

/*
UseDatabaseInTransaction utilize a `Database` instance in a transaction

	@param ctx context.Context - execution context
	@param coreLogic func(ctx context.Context, dbClient Database) error - the callback to execute
*/
func (c *clientImpl) UseDatabaseInTransaction(
	ctx context.Context, coreLogic func(ctx context.Context, dbClient Database) error,
) error {
	return c.RunSQLInTransaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		dbClient, err := newDatabase(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to define `Database` instance: [%w]", err)
		}
		return coreLogic(ctx, dbClient)
	})
}

/*
ExportSnapshot serialize the entire database into one binary image

	@param ctx context.Context - execution context
	@returns the SQLite database image
*/
func (c *clientImpl) ExportSnapshot(ctx context.Context) ([]byte, error) {
	image, err := exportSnapshot(ctx, c.sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize DB [%w]", err)
	}
	return image, nil
}

// Close release the database
func (c *clientImpl) Close() error {
	return c.sqlDB.Close()
}
