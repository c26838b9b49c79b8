package mssql

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/microsoft/go-mssqldb" // side-effect

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/stdsql"
)

type Client struct {
	stdsql.Handle // [Embedded] for Promoted Methods
	Conf          *sqldb.Conf
	dsn           string
}

// Ensure mssql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

var defaults = sqldb.Conf{Host: "localhost", Port: 1433, User: "sa", DB: "master"}

func Register() {
	sqldb.RegisterFactory("mssql", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

// BuildDSN renders a sqlserver:// URL unless conf.DSN overrides it.
func BuildDSN(conf *sqldb.Conf) string {
	if conf.DSN != "" {
		return conf.DSN
	}
	c := conf.WithDefaults(defaults)
	q := url.Values{}
	q.Set("database", c.DB)
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.PW),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c *Client) Init() error {
	c.dsn = BuildDSN(c.Conf)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Open(ctx); err != nil {
		return err
	}
	log.Println("[INFO] mssql client initialized")
	return nil
}

func (c *Client) Open(ctx context.Context) error {
	if c.dsn == "" {
		c.dsn = BuildDSN(c.Conf)
	}
	db, err := stdsql.Open(ctx, "sqlserver", c.dsn, stdsql.DefaultPool)
	if err != nil {
		return err
	}
	c.DB = db
	return nil
}

func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	log.Println("[INFO] closing mssql client")
	err := c.DB.Close()
	c.DB = nil
	if err != nil {
		return err
	}
	log.Println("[INFO] mssql client closed")
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
		return fmt.Errorf("mssql client not initialized")
	}
	return c.DB.PingContext(ctx)
}

func (c *Client) Dialect() sqldb.UpsertBuilder {
	return Dialect{}
}
