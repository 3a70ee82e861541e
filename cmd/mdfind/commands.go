package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	bolt "go.etcd.io/bbolt"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/backend/fsbackend"
	"github.com/hxhall/mdq/pkg/backend/valuestore"
	"github.com/hxhall/mdq/pkg/config"
	"github.com/hxhall/mdq/pkg/display"
	"github.com/hxhall/mdq/pkg/logger"
	"github.com/hxhall/mdq/pkg/predicate"
	"github.com/hxhall/mdq/pkg/query"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// searchFlags holds the predicate-building flags shared by search and watch.
type searchFlags struct {
	name           string
	ext            string
	contentType    string
	larger         string
	smaller        string
	modifiedWithin int
	modifiedToday  bool
	caseSensitive  bool
}

// bindSearchFlags registers the shared predicate flags on a flag set.
func bindSearchFlags(fs *flag.FlagSet) *searchFlags {
	opts := &searchFlags{}
	fs.StringVar(&opts.name, "name", "", "file name contains")
	fs.StringVar(&opts.ext, "ext", "", "file extension equals")
	fs.StringVar(&opts.contentType, "content-type", "", "content type equals")
	fs.StringVar(&opts.larger, "larger", "", "file size at least (e.g. 10MB)")
	fs.StringVar(&opts.smaller, "smaller", "", "file size below (e.g. 500KB)")
	fs.IntVar(&opts.modifiedWithin, "modified-within", 0, "modified within the last N days")
	fs.BoolVar(&opts.modifiedToday, "modified-today", false, "modified today")
	fs.BoolVar(&opts.caseSensitive, "case-sensitive", false, "case sensitive name matching")
	return opts
}

// buildPredicate converts the shared flags into an expression tree.
// Returns nil (match everything) when no predicate flags are set.
func (o *searchFlags) buildPredicate() (predicate.Expression, error) {
	var parts []predicate.Expression

	if o.name != "" {
		opts := predicate.MatchOptions{CaseSensitive: o.caseSensitive}
		parts = append(parts, predicate.Attr(attribute.FileName).Contains(o.name, opts))
	}
	if o.ext != "" {
		parts = append(parts, predicate.Attr(attribute.FileExtension).Equals(strings.TrimPrefix(o.ext, ".")))
	}
	if o.contentType != "" {
		parts = append(parts, predicate.Attr(attribute.ContentType).Equals(o.contentType))
	}
	if o.larger != "" {
		size, err := parseSize(o.larger)
		if err != nil {
			return nil, fmt.Errorf("invalid -larger value: %w", err)
		}
		parts = append(parts, predicate.Attr(attribute.FileSize).AtLeast(size))
	}
	if o.smaller != "" {
		size, err := parseSize(o.smaller)
		if err != nil {
			return nil, fmt.Errorf("invalid -smaller value: %w", err)
		}
		parts = append(parts, predicate.Attr(attribute.FileSize).LessThan(size))
	}
	if o.modifiedWithin > 0 {
		parts = append(parts, predicate.Attr(attribute.ModificationDate).Within(o.modifiedWithin, predicate.Days))
	}
	if o.modifiedToday {
		parts = append(parts, predicate.Attr(attribute.ModificationDate).InBucket(predicate.BucketToday))
	}

	if len(parts) == 0 {
		return nil, nil
	}

	expr := predicate.And(parts...)
	if err := predicate.Validate(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

// sizeUnits maps size suffixes to their unit, longest suffix first.
var sizeUnits = []struct {
	suffix string
	unit   predicate.SizeUnit
}{
	{"KiB", predicate.Kibibytes},
	{"MiB", predicate.Mebibytes},
	{"GiB", predicate.Gibibytes},
	{"TiB", predicate.Tebibytes},
	{"PiB", predicate.Pebibytes},
	{"KB", predicate.Kilobytes},
	{"MB", predicate.Megabytes},
	{"GB", predicate.Gigabytes},
	{"TB", predicate.Terabytes},
	{"PB", predicate.Petabytes},
	{"B", predicate.Bytes},
}

// parseSize parses a human size string like "10MB" or "1.5GiB" into bytes.
// A bare number is taken as bytes.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)

	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			num := strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q", s)
			}
			return predicate.Size(v, u.unit), nil
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return v, nil
}

// environment bundles the components a command needs at runtime.
type environment struct {
	cfg     *config.Config
	log     logger.Logger
	db      *bolt.DB
	backend *fsbackend.FSBackend
}

// initialize loads configuration and constructs the backend stack.
func initialize(configPath string) (*environment, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	env := &environment{cfg: cfg, log: log}

	store := valuestore.NewMemoryStore()
	if cfg.Storage.DBPath != "" {
		db, dbErr := openValueDB(cfg.Storage.DBPath)
		if dbErr != nil {
			log.Warn("value cache unavailable, continuing without persistence",
				"path", cfg.Storage.DBPath,
				"error", dbErr)
		} else {
			boltStore, storeErr := valuestore.NewBoltStore(db)
			if storeErr != nil {
				log.Warn("failed to initialize value store", "error", storeErr)
				_ = db.Close()
			} else {
				env.db = db
				store = boltStore
			}
		}
	}

	backendCfg := fsbackend.NewConfig()
	backendCfg.Store = store
	backendCfg.SkipHidden = cfg.Search.SkipHidden
	backendCfg.DebounceInterval = cfg.Performance.DebounceInterval
	env.backend = fsbackend.New(backendCfg, log)

	return env, nil
}

// openValueDB opens the bolt value cache, creating parent directories.
func openValueDB(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(dirOf(path), 0700); err != nil {
		return nil, err
	}
	return bolt.Open(path, 0600, nil)
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, os.PathSeparator); i > 0 {
		return path[:i]
	}
	return "."
}

// cleanup closes resources.
func (e *environment) cleanup() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Error("failed to close value cache", "error", err)
		}
	}
}

// scopesOrDefault returns positional scopes, falling back to config.
func (e *environment) scopesOrDefault(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return e.cfg.Scopes
}

// searchCommand runs a one-shot query and prints the result set.
type searchCommand struct {
	opts       searchFlags
	scopes     []string
	format     string
	compact    bool
	tree       bool
	groupBy    string
	configPath string
}

// Execute runs the search command.
func (c *searchCommand) Execute() error {
	env, err := initialize(c.configPath)
	if err != nil {
		return err
	}
	defer env.cleanup()

	expr, err := c.opts.buildPredicate()
	if err != nil {
		return err
	}

	groupKeys, err := c.parseGroupKeys()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snapshot, err := query.Search(ctx, env.backend, query.Config{
		Scopes:    env.scopesOrDefault(c.scopes),
		GroupKeys: groupKeys,
		Batching:  env.cfg.Batching,
	}, expr, env.log)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	formatter := display.New(display.Config{
		Format:  c.displayFormat(env.cfg),
		Compact: c.compact,
	})

	switch {
	case c.tree:
		return formatter.FormatTree(os.Stdout, query.BuildHierarchy(snapshot))
	case len(groupKeys) > 0:
		return formatter.FormatGroups(os.Stdout, query.BuildGrouped(snapshot, groupKeys))
	default:
		return formatter.FormatItems(os.Stdout, snapshot.Items(), c.displayAttrs())
	}
}

// displayFormat resolves the output format from flags and config.
func (c *searchCommand) displayFormat(cfg *config.Config) display.Format {
	mode := c.format
	if mode == "" {
		mode = cfg.Display.DefaultMode
	}
	switch mode {
	case "json":
		return display.FormatJSON
	case "simple":
		return display.FormatSimple
	default:
		return display.FormatTable
	}
}

// displayAttrs selects the per-item columns to show.
func (c *searchCommand) displayAttrs() []attribute.ID {
	return []attribute.ID{attribute.FileSize, attribute.ModificationDate}
}

// parseGroupKeys converts the -group-by flag into group keys.
func (c *searchCommand) parseGroupKeys() ([]attribute.GroupKey, error) {
	if c.groupBy == "" {
		return nil, nil
	}

	var ids []attribute.ID
	for _, name := range strings.Split(c.groupBy, ",") {
		ids = append(ids, attribute.ID(strings.TrimSpace(name)))
	}

	keys, err := attribute.NewGroupKeys(ids...)
	if err != nil {
		return nil, fmt.Errorf("invalid -group-by: %w", err)
	}
	return keys, nil
}

// watchCommand runs a monitoring query and streams changes.
type watchCommand struct {
	opts       searchFlags
	scopes     []string
	format     string
	diffOnly   bool
	configPath string
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	env, err := initialize(c.configPath)
	if err != nil {
		return err
	}
	defer env.cleanup()

	expr, err := c.opts.buildPredicate()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	q := query.New(env.backend, query.Config{
		Scopes:                 env.scopesOrDefault(c.scopes),
		Monitoring:             true,
		Batching:               env.cfg.Batching,
		PublishDuringGathering: env.cfg.Search.PublishDuringGathering,
	}, env.log)
	defer func() { _ = q.Close() }()

	formatter := display.New(display.Config{
		Format:  c.displayFormat(),
		Compact: true,
	})

	q.SetResultsHandler(func(snapshot reconcile.Snapshot, diff reconcile.Diff) {
		if c.diffOnly {
			c.printDiff(snapshot, diff)
			return
		}
		_ = formatter.FormatItems(os.Stdout, snapshot.Items(), nil)
	})

	if err := q.SetPredicate(expr); err != nil {
		return err
	}
	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("failed to start query: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Watching (Ctrl-C to stop)...")
	<-ctx.Done()
	return nil
}

// displayFormat resolves the watch output format.
func (c *watchCommand) displayFormat() display.Format {
	if c.format == "table" {
		return display.FormatTable
	}
	return display.FormatSimple
}

// printDiff prints one line per changed item.
func (c *watchCommand) printDiff(snapshot reconcile.Snapshot, diff reconcile.Diff) {
	for _, id := range diff.Added {
		fmt.Printf("+ %s\n", id)
	}
	for _, id := range diff.Removed {
		fmt.Printf("- %s\n", id)
	}
	for _, id := range diff.Changed {
		fmt.Printf("~ %s\n", id)
	}
}

// attrsCommand lists the attribute catalog.
type attrsCommand struct {
	format string
}

// Execute runs the attrs command.
func (c *attrsCommand) Execute() error {
	descriptors := attribute.All()

	if c.format == "simple" {
		for _, d := range descriptors {
			fmt.Printf("%s\t%s\t%s\n", d.ID, d.Kind, strings.Join(d.Keys, ","))
		}
		return nil
	}

	fmt.Printf("%-24s %-12s %s\n", "ATTRIBUTE", "KIND", "BACKEND KEYS")
	for _, d := range descriptors {
		fmt.Printf("%-24s %-12s %s\n", d.ID, d.Kind, strings.Join(d.Keys, ", "))
	}
	return nil
}
