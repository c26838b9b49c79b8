package mysql

import (
	"context"
	"fmt"
	"log"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/stdsql"
)

type Client struct {
	stdsql.Handle // [Embedded] for Promoted Methods
	Conf          *sqldb.Conf
	dsn           string
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

var defaults = sqldb.Conf{Host: "localhost", Port: 3306, User: "root"}

func Register() {
	sqldb.RegisterFactory("mysql", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

// BuildDSN renders conf for go-sql-driver/mysql unless conf.DSN overrides it.
func BuildDSN(conf *sqldb.Conf) (string, error) {
	if conf.DSN != "" {
		return conf.DSN, nil
	}
	c := conf.WithDefaults(defaults)
	cfg := gomysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.PW
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.DB
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Params = map[string]string{"sql_mode": "ANSI_QUOTES"}
	if c.TZ != "" {
		loc, err := time.LoadLocation(c.TZ)
		if err != nil {
			return "", &sqldb.ConfigurationError{Op: "mysql dsn", Msg: err.Error()}
		}
		cfg.Loc = loc
	}
	return cfg.FormatDSN(), nil
}

func (c *Client) Init() error {
	var err error
	if c.dsn, err = BuildDSN(c.Conf); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = c.Open(ctx); err != nil {
		return err
	}
	log.Println("[INFO] mysql client initialized")
	return nil
}

func (c *Client) Open(ctx context.Context) error {
	if c.dsn == "" {
		dsn, err := BuildDSN(c.Conf)
		if err != nil {
			return err
		}
		c.dsn = dsn
	}
	db, err := stdsql.Open(ctx, "mysql", c.dsn, stdsql.DefaultPool)
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
	log.Println("[INFO] closing mysql client")
	err := c.DB.Close()
	c.DB = nil
	if err != nil {
		return err
	}
	log.Println("[INFO] mysql client closed")
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
		return fmt.Errorf("mysql client not initialized")
	}
	return c.DB.PingContext(ctx)
}

func (c *Client) Dialect() sqldb.UpsertBuilder {
	return Dialect{}
}
