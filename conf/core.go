package conf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/zeptools/gw-oradb/db"
	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/mssql"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/oracle"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/sqlite"
	"github.com/zeptools/gw-oradb/locks/keyonlylocks"
	"github.com/zeptools/gw-oradb/sec"
)

// SecretKeyEnv names the environment variable holding the key for sealed passwords.
const SecretKeyEnv = "GWSQL_SECRET_KEY"

var ErrClientBusy = errors.New("sql database client is busy")

// Core - common config
type Core struct {
	AppName             string                  `json:"app_name"`
	DebugOpts           DebugOpts               `json:"debug_opts"` // Debug Options
	AppRoot             string                  `json:"-"`          // Filled from compiled paths
	RootCtx             context.Context         `json:"-"`          // Global Context with RootCancel
	RootCancel          context.CancelFunc      `json:"-"`          // CancelFunc for RootCtx
	ActionLocks         *sync.Map               `json:"-"`          // map[string]struct{}
	SQLDBConfs          map[string]*sqldb.Conf  `json:"-"`          // LoadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client `json:"-"`          // prepareSQLDBClients
}

type DebugOpts struct {
	Verbose bool `json:"verbose"` // Debug-level adapter logs
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.core.json file if present
// 3. prepare base fields
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	envFilePath := filepath.Join(appRoot, "config", ".core.json")
	envBytes, err := os.ReadFile(envFilePath) // ([]byte, error)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("[INFO][CORE] %s not found, using defaults", envFilePath)
	case err != nil:
		return err
	default:
		if err = json.Unmarshal(envBytes, c); err != nil {
			return fmt.Errorf("%s: %w", envFilePath, err)
		}
	}
	if c.AppName == "" {
		c.AppName = "gwsql"
	}
	if c.DebugOpts.Verbose {
		oracle.SetLogLevel(oracle.LogLevelDebug)
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.ActionLocks = &sync.Map{}
	c.startShutdownSignalListener()
	return nil
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child operations via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

func (c *Core) LoadSQLDBConfs() error {
	confFilePath := filepath.Join(c.AppRoot, "config", ".sql-databases.json")
	confBytes, err := os.ReadFile(confFilePath) // ([]byte, error)
	if err != nil {
		return err
	}
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	if err = json.Unmarshal(confBytes, &c.SQLDBConfs); err != nil {
		return fmt.Errorf("%s: %w", confFilePath, err)
	}
	return c.revealPasswords()
}

// revealPasswords decrypts sealed `pw` values with the key from SecretKeyEnv.
func (c *Core) revealPasswords() error {
	cipher, err := sec.NewCipherFromEnv(SecretKeyEnv)
	if err != nil {
		return err
	}
	for name, conf := range c.SQLDBConfs {
		if conf == nil {
			return &sqldb.ConfigurationError{Op: "load", Msg: fmt.Sprintf("%q has no conf", name)}
		}
		pw, err := cipher.Reveal(conf.PW)
		if err != nil {
			return fmt.Errorf("%q: %w", name, err)
		}
		conf.PW = pw
	}
	return nil
}

// RegisterImplementations adds every supported sqldb factory.
func RegisterImplementations() {
	oracle.Register()
	pgsql.Register()
	mysql.Register()
	mssql.Register()
	sqlite.Register()
}

// prepareSQLDBClients - Build & Init SQL DB Clients
// Use after LoadSQLDBConfs. Empty names prepares every configured database.
func (c *Core) prepareSQLDBClients(names []string) error {
	if c.BackendSQLDBClients == nil {
		c.BackendSQLDBClients = make(map[string]sqldb.Client)
	}
	RegisterImplementations()
	if len(names) == 0 {
		names = c.SQLDBNames()
	}
	for _, dbName := range names {
		sqlDBConf, ok := c.SQLDBConfs[dbName]
		if !ok {
			return &sqldb.ConfigurationError{Op: "prepare", Msg: fmt.Sprintf("no database named %q", dbName)}
		}
		if _, ready := c.BackendSQLDBClients[dbName]; ready {
			continue
		}
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return err
		}
		log.Printf("[INFO][%s] initializing %q SQL DB client", sqlDBConf.Type, dbName)
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("%q: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// PrepareSQLDatabases loads config/.sql-databases.json and initializes the
// named clients, or all of them when names is empty.
func (c *Core) PrepareSQLDatabases(names ...string) error {
	if err := c.LoadSQLDBConfs(); err != nil {
		return err
	}
	if len(c.SQLDBConfs) == 0 {
		return nil
	}
	return c.prepareSQLDBClients(names)
}

// SQLDBNames lists the configured database names, sorted.
func (c *Core) SQLDBNames() []string {
	names := make([]string, 0, len(c.SQLDBConfs))
	for name := range c.SQLDBConfs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Core) SQLDBClient(name string) (sqldb.Client, error) {
	client, ok := c.BackendSQLDBClients[name]
	if !ok {
		return nil, fmt.Errorf("sql database client %q is not prepared", name)
	}
	return client, nil
}

// WithSQLDBClient runs fn while holding the action lock for name.
// Clients such as oracle hold one session and must not be shared concurrently;
// a second caller gets ErrClientBusy instead of waiting.
func (c *Core) WithSQLDBClient(name string, fn func(sqldb.Client) error) error {
	client, err := c.SQLDBClient(name)
	if err != nil {
		return err
	}
	keys, ok := keyonlylocks.AcquireLocks(c.ActionLocks, []string{"sqldb:" + name})
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrClientBusy)
	}
	defer keyonlylocks.ReleaseLocks(c.ActionLocks, keys)
	return fn(client)
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	for _, name := range c.SQLDBNames() {
		sqlDBClient, ok := c.BackendSQLDBClients[name]
		if !ok {
			continue
		}
		db.CloseClient(fmt.Sprintf("%s:%s", sqlDBClient.GetConf().Type, name), sqlDBClient)
		delete(c.BackendSQLDBClients, name)
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}
