package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/oci"
	"github.com/zeptools/gw-oradb/db/sqldb/oci/sqlnative"
)

// Client is an Oracle session over the native call interface.
// It holds one session and is not safe for concurrent use; callers that
// share a Client must serialize every call.
type Client struct {
	Conf   *sqldb.Conf
	Native oci.Native

	sess   session
	dsn    string
	scheme string
}

// Ensure oracle.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func NewClient(conf *sqldb.Conf, native oci.Native) *Client {
	return &Client{Conf: conf, Native: native}
}

// Register adds the "oracle" factory, backed by the pure-Go driver.
func Register() {
	sqldb.RegisterFactory("oracle", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return NewClient(conf, sqlnative.NewOracle(conf.DSN)), nil
	})
}

func (c *Client) Init() error {
	if c.Conf == nil {
		return &sqldb.ConfigurationError{Op: "init", Msg: "oracle client has no conf"}
	}
	if c.Native == nil {
		c.Native = sqlnative.NewOracle(c.Conf.DSN)
	}
	conf := c.Conf.WithDefaults(defaults)
	c.dsn = ConnectString(conf.Host, conf.Port, conf.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Open(ctx); err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		c.sess.disconnect()
		return fmt.Errorf("oracle ping failed: %w", err)
	}
	if err := c.ChangeScheme(ctx, c.Conf.Scheme); err != nil {
		c.sess.disconnect()
		return fmt.Errorf("oracle change scheme failed: %w", err)
	}
	logInfo("oracle client initialized")
	return nil
}

func (c *Client) Open(ctx context.Context) error {
	if c.Conf == nil || c.Native == nil {
		return &sqldb.ConfigurationError{Op: "open", Msg: "oracle client is not initialized"}
	}
	c.sess.native = c.Native
	if c.dsn == "" {
		conf := c.Conf.WithDefaults(defaults)
		c.dsn = ConnectString(conf.Host, conf.Port, conf.DB)
	}
	return c.sess.connect(ctx, *c.Conf)
}

// Close disconnects. It is safe to call more than once and after a failed Open.
func (c *Client) Close() error {
	if c.sess.native == nil {
		return nil
	}
	c.sess.disconnect()
	return nil
}

// Connected reports whether the session is up.
func (c *Client) Connected() bool {
	return c.sess.connected()
}

func (c *Client) GetHandle() sqldb.Handle {
	return c
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

// GetDSN returns the server attach string.
func (c *Client) GetDSN() string {
	return c.dsn
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ExecuteQueryString(ctx, "SELECT 1 FROM DUAL")
	return err
}

func (c *Client) Dialect() sqldb.UpsertBuilder {
	return Dialect{}
}

// ExecuteQueryString runs query and returns every fetched row.
// A statement without a result set, or one reporting no data, returns an empty slice.
func (c *Client) ExecuteQueryString(ctx context.Context, query string) ([]sqldb.RowMap, error) {
	ex, err := c.sess.execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return ex.rows, nil
}

func (c *Client) QueryRows(ctx context.Context, query string) (sqldb.Rows, error) {
	ex, err := c.sess.execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return sqldb.NewMapRows(ex.columns, ex.rows), nil
}

func (c *Client) QueryRow(ctx context.Context, query string) sqldb.Row {
	return sqldb.NewRow(c.QueryRows(ctx, query))
}

// Exec runs query and reports the statement's row count as rows affected.
func (c *Client) Exec(ctx context.Context, query string) (sqldb.Result, error) {
	ex, err := c.sess.execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return sqldb.MapResult{Affected: int64(ex.rowCount)}, nil
}

// ChangeScheme switches the session's default schema. An empty scheme is a no-op.
func (c *Client) ChangeScheme(ctx context.Context, scheme string) error {
	if scheme == "" {
		return nil
	}
	if !sqldb.IsIdentifier(scheme) {
		return &sqldb.ConfigurationError{Op: "change scheme", Msg: fmt.Sprintf("invalid schema name %q", scheme)}
	}
	if _, err := c.sess.execute(ctx, "ALTER SESSION SET CURRENT_SCHEMA = "+scheme); err != nil {
		return err
	}
	c.scheme = scheme
	return nil
}

// Scheme returns the schema set by ChangeScheme.
func (c *Client) Scheme() string {
	return c.scheme
}
