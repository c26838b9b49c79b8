// Command gwsql runs a statement against a database named in
// config/.sql-databases.json and prints the rows as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zeptools/gw-oradb/conf"
	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/dbg"
	"github.com/zeptools/gw-oradb/rw"
	"github.com/zeptools/gw-oradb/sec"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// assignments collects repeated -set col=value flags in order.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(s string) error {
	if !strings.Contains(s, "=") {
		return fmt.Errorf("expected col=value, got %q", s)
	}
	*a = append(*a, s)
	return nil
}

type options struct {
	root      string
	db        string
	exec      string
	upsert    string
	sel       string
	cols      string
	where     string
	order     string
	scheme    string
	sets      assignments
	key       string
	returning string
	list      bool
	seal      string
	debug     bool
	out       string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("gwsql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.root, "root", ".", "app root holding config/")
	fs.StringVar(&o.db, "db", "", "database name from config/.sql-databases.json")
	fs.StringVar(&o.exec, "e", "", "SQL text to execute")
	fs.StringVar(&o.upsert, "upsert", "", "table to upsert one row into")
	fs.Var(&o.sets, "set", "col=value for -upsert (repeatable)")
	fs.StringVar(&o.key, "key", "", "conflict column for -upsert")
	fs.StringVar(&o.returning, "returning", "", "comma separated columns to return from -upsert")
	fs.StringVar(&o.sel, "select", "", "table to select rows from")
	fs.StringVar(&o.cols, "cols", "", "comma separated columns for -select (default *)")
	fs.StringVar(&o.where, "where", "", "condition for -select, without WHERE")
	fs.StringVar(&o.order, "order", "", "sort keys for -select, e.g. \"name DESC NULLS LAST, id\"")
	fs.StringVar(&o.scheme, "scheme", "", "switch the session schema before running (oracle)")
	fs.BoolVar(&o.list, "list", false, "list configured databases")
	fs.StringVar(&o.seal, "seal", "", "print the sealed form of a password using "+conf.SecretKeyEnv)
	fs.BoolVar(&o.debug, "debug", false, "include statement diagnostics in the output")
	fs.StringVar(&o.out, "o", "", "write output to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.list || o.seal != "" {
		return o, nil
	}
	switch {
	case o.db == "":
		return nil, errors.New("-db is required")
	case countSet(o.exec, o.upsert, o.sel) != 1:
		return nil, errors.New("exactly one of -e, -upsert or -select is required")
	case o.upsert != "" && (o.key == "" || len(o.sets) == 0):
		return nil, errors.New("-upsert needs -key and at least one -set")
	}
	return o, nil
}

func countSet(vals ...string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}

// parseValue turns command-line text into a row value: NULL, an integer,
// a decimal, or text.
func parseValue(s string) any {
	if strings.EqualFold(s, "null") {
		return nil
	}
	if i, ok := sqldb.ParseInteger(s); ok {
		return i
	}
	if d, ok := sqldb.ParseDecimal(s); ok {
		return d
	}
	return s
}

func buildUpsert(o *options, dialect sqldb.UpsertBuilder) (string, error) {
	q := sqldb.NewQuery(o.upsert, dialect).OnConflict(o.key)
	for _, a := range o.sets {
		col, val, _ := strings.Cut(a, "=")
		if _, err := q.SetValue(strings.TrimSpace(col), parseValue(val)); err != nil {
			return "", err
		}
	}
	if o.returning != "" {
		for _, r := range strings.Split(o.returning, ",") {
			q.ReturnColumns(strings.TrimSpace(r))
		}
	}
	return q.UpsertSQL()
}

func buildSelect(o *options) (string, error) {
	q := sqldb.NewQuery(o.sel, nil).Filter(o.where)
	if o.cols != "" {
		names := strings.Split(o.cols, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		cols, err := sqldb.NewColumns(names...)
		if err != nil {
			return "", err
		}
		q.Select(cols...)
	}
	orders, err := sqldb.ParseOrderByList(o.order)
	if err != nil {
		return "", err
	}
	return q.OrderBy(orders...).SelectSQL()
}

// schemeChanger is implemented by clients that can switch the session schema.
type schemeChanger interface {
	ChangeScheme(ctx context.Context, scheme string) error
}

func run(args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "gwsql: %v\n", err)
		}
		return exitUsage
	}

	if o.seal != "" {
		cipher, err := sec.NewCipherFromEnv(conf.SecretKeyEnv)
		if err == nil && cipher == nil {
			err = fmt.Errorf("%s is not set", conf.SecretKeyEnv)
		}
		if err != nil {
			fmt.Fprintf(stderr, "gwsql: %v\n", err)
			return exitError
		}
		sealed, err := cipher.Seal(o.seal)
		if err != nil {
			fmt.Fprintf(stderr, "gwsql: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, sealed)
		return exitOK
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	core := &conf.Core{}
	if err = core.BaseInit(o.root, rootCtx, rootCancel); err != nil {
		fmt.Fprintf(stderr, "gwsql: %v\n", err)
		return exitError
	}

	if o.list {
		if err = core.LoadSQLDBConfs(); err != nil {
			fmt.Fprintf(stderr, "gwsql: %v\n", err)
			return exitError
		}
		for _, name := range core.SQLDBNames() {
			fmt.Fprintf(stdout, "%s\t%s\n", name, core.SQLDBConfs[name].Type)
		}
		return exitOK
	}

	if err = core.PrepareSQLDatabases(o.db); err != nil {
		fmt.Fprintf(stderr, "gwsql: %v\n", err)
		return exitError
	}
	defer core.ResourceCleanUp()

	out := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			fmt.Fprintf(stderr, "gwsql: %v\n", err)
			return exitError
		}
		defer f.Close()
		out = f
	}
	cw := rw.NewCountWriter(out)

	err = core.WithSQLDBClient(o.db, func(client sqldb.Client) error {
		if o.scheme != "" {
			sc, ok := client.(schemeChanger)
			if !ok {
				return fmt.Errorf("%s does not support -scheme", client.GetConf().Type)
			}
			if err := sc.ChangeScheme(rootCtx, o.scheme); err != nil {
				return err
			}
		}
		stmt := o.exec
		var err error
		switch {
		case o.upsert != "":
			stmt, err = buildUpsert(o, client.Dialect())
		case o.sel != "":
			stmt, err = buildSelect(o)
		}
		if err != nil {
			return err
		}
		start := time.Now()
		rows, err := client.ExecuteQueryString(rootCtx, stmt)
		if err != nil {
			return err
		}
		packed := dbg.Pack(rows)
		if o.debug {
			packed.WithDebug(dbg.Statement{
				Database: o.db,
				Type:     client.GetConf().Type,
				SQL:      stmt,
				Rows:     len(rows),
			}.Timed(start))
		}
		enc := json.NewEncoder(cw)
		enc.SetIndent("", "  ")
		return enc.Encode(packed)
	})
	if err != nil {
		fmt.Fprintf(stderr, "gwsql: %v\n", err)
		return exitError
	}
	log.Printf("[INFO] wrote %d bytes", cw.BytesWritten())
	return exitOK
}
