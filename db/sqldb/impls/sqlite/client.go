package sqlite

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // side-effect

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/stdsql"
)

type Client struct {
	stdsql.Handle // [Embedded] for Promoted Methods
	Conf          *sqldb.Conf
	dsn           string
}

// Ensure sqlite.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// SQLite serializes writers; one connection avoids SQLITE_BUSY between pool members.
var pool = stdsql.Pool{MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: 0}

func Register() {
	sqldb.RegisterFactory("sqlite", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

// BuildDSN uses Conf.DB as the database file; empty means in-memory.
func BuildDSN(conf *sqldb.Conf) string {
	if conf.DSN != "" {
		return conf.DSN
	}
	if conf.DB == "" || conf.DB == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", conf.DB)
}

func (c *Client) Init() error {
	c.dsn = BuildDSN(c.Conf)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Open(ctx); err != nil {
		return err
	}
	log.Print("[INFO] sqlite client initialized")
	return nil
}

func (c *Client) Open(ctx context.Context) error {
	if c.dsn == "" {
		c.dsn = BuildDSN(c.Conf)
	}
	db, err := stdsql.Open(ctx, "sqlite3", c.dsn, pool)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	c.DB = db
	return nil
}

func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	log.Println("[INFO] closing sqlite client")
	err := c.DB.Close()
	c.DB = nil
	if err != nil {
		return err
	}
	log.Println("[INFO] sqlite client closed")
	return nil
}

func (c *Client) GetHandle() sqldb.Handle {
	return &stdsql.Handle{DB: c.DB}
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) GetDSN() string {
	return c.dsn
}

func (c *Client) Ping(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("sqlite client not initialized")
	}
	return c.DB.PingContext(ctx)
}

func (c *Client) Dialect() sqldb.UpsertBuilder {
	return Dialect{}
}

// Dialect renders INSERT ... ON CONFLICT upserts; RETURNING needs SQLite 3.35.
type Dialect struct{}

func (Dialect) BuildUpsert(table string, values []sqldb.ColumnValue, conflictColumn string, returning []string) (string, bool) {
	return sqldb.BuildInsertOnConflict(table, values, conflictColumn, returning)
}
