// Command crbstat runs an allocation workload on a crb state and records
// heap snapshots of it in a SQLite database.
//
//	crbstat -n 5000 -compact -db heap.db
//	crbstat -db heap.db -list
//	crbstat -db heap.db -diff <from-id> <to-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"github.com/oruby/crb"
	"github.com/oruby/crb/heapdump"
)

type Args struct {
	config  string
	db      string
	driver  string
	level   string
	label   string
	libs    []string
	records int
	compact bool
	stress  bool
	list    bool
	diff    bool
	top     int
	version bool
	rest    []string
}

func usage() {
	usageMsg := []string{
		"switches:",
		"-config file   read VM settings from a YAML file",
		"-db dsn        snapshot database (default crbstat.db)",
		"-driver name   database/sql driver: sqlite3 (cgo) or sqlite (pure Go)",
		"-n count       records the workload allocates (default 1000)",
		"-compact       compact the heap before the last snapshot",
		"-stress        collect on every allocation",
		"-r gem         require a registered gem first, may be repeated",
		"-label name    prefix for snapshot labels",
		"-list          list recorded snapshots and exit",
		"-diff a b      print the class growth between two snapshots and exit",
		"-top n         rows of class tables to print (default 15)",
		"-log level     debug, info, warn or error",
		"-version       print the version",
	}
	fmt.Fprintf(os.Stderr, "Usage: %v [switches]\n", os.Args[0])
	for _, line := range usageMsg {
		fmt.Fprintf(os.Stderr, "  %v\n", line)
	}
}

type libList struct{ libs *[]string }

func (l libList) String() string {
	if l.libs == nil {
		return ""
	}
	return strings.Join(*l.libs, ",")
}

func (l libList) Set(s string) error {
	*l.libs = append(*l.libs, s)
	return nil
}

func parseArgs(args *Args) {
	flag.Usage = usage
	flag.StringVar(&args.config, "config", "", "read VM settings from a YAML file")
	flag.StringVar(&args.db, "db", "crbstat.db", "snapshot database")
	flag.StringVar(&args.driver, "driver", "sqlite3", "database/sql driver")
	flag.StringVar(&args.level, "log", "", "log level")
	flag.StringVar(&args.label, "label", "run", "prefix for snapshot labels")
	flag.Var(libList{&args.libs}, "r", "require a registered gem first")
	flag.IntVar(&args.records, "n", 1000, "records the workload allocates")
	flag.IntVar(&args.top, "top", 15, "rows of class tables to print")
	flag.BoolVar(&args.compact, "compact", false, "compact the heap before the last snapshot")
	flag.BoolVar(&args.stress, "stress", false, "collect on every allocation")
	flag.BoolVar(&args.list, "list", false, "list recorded snapshots and exit")
	flag.BoolVar(&args.diff, "diff", false, "print the class growth between two snapshots")
	flag.BoolVar(&args.version, "version", false, "print the version")
	flag.Parse()
	args.rest = flag.Args()
}

func main() {
	var args Args
	parseArgs(&args)

	if args.version {
		fmt.Println(crb.Description())
		return
	}
	if err := run(context.Background(), &args); err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args *Args) error {
	cfg := crb.DefaultConfig()
	if args.config != "" {
		var err error
		if cfg, err = crb.LoadConfig(args.config); err != nil {
			return err
		}
	}
	if args.level != "" {
		cfg.Log.Level = args.level
	}
	if args.stress {
		cfg.GC.Stress = true
	}
	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()
	crb.SetLogger(log)

	store, err := heapdump.Open(ctx, args.driver, args.db, heapdump.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case args.list:
		return listSnapshots(ctx, store)
	case args.diff:
		if len(args.rest) != 2 {
			return fmt.Errorf("-diff needs two snapshot ids")
		}
		from, err := uuid.Parse(args.rest[0])
		if err != nil {
			return fmt.Errorf("snapshot id %q: %w", args.rest[0], err)
		}
		to, err := uuid.Parse(args.rest[1])
		if err != nil {
			return fmt.Errorf("snapshot id %q: %w", args.rest[1], err)
		}
		return printGrowth(ctx, store, from, to, args.top)
	}

	st, err := crb.New(crb.WithConfig(cfg), crb.WithLogger(log))
	if err != nil {
		return err
	}
	defer st.Close()

	for _, lib := range args.libs {
		if _, err := st.Require(lib); err != nil {
			return err
		}
	}
	return workload(ctx, st, store, args)
}

// newLogger logs in color to a terminal and as JSON otherwise
func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	var enc zapcore.Encoder
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		ec := zap.NewDevelopmentEncoderConfig()
		if _, ok := os.LookupEnv("NO_COLOR"); !ok {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core).Named("crbstat"), nil
}
