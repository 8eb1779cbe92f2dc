// Command verbum reads scripture by reference: an interactive reader, one-shot
// lookups, keyword search and an HTTP API over a local Bible dataset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/verbum/core/corpus"
	coreerrors "github.com/FocuswithJustin/verbum/core/errors"
	"github.com/FocuswithJustin/verbum/core/navigate"
	"github.com/FocuswithJustin/verbum/core/ref"
	"github.com/FocuswithJustin/verbum/core/sqlite"
	"github.com/FocuswithJustin/verbum/internal/api"
	"github.com/FocuswithJustin/verbum/internal/config"
	"github.com/FocuswithJustin/verbum/internal/logging"
	"github.com/FocuswithJustin/verbum/internal/metrics"
	"github.com/FocuswithJustin/verbum/internal/render"
	"github.com/FocuswithJustin/verbum/internal/search"
	"github.com/FocuswithJustin/verbum/internal/session"
	"github.com/FocuswithJustin/verbum/internal/validation"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    kong.ConfigFlag `name:"config" short:"c" help:"YAML configuration file"`
	Bible     string          `name:"bible" short:"b" env:"BIBLE_PATH" help:"Bible dataset (.json, .xml, .osis, .db; .json and .xml may be .xz compressed)" type:"path"`
	LogLevel  string          `name:"log-level" env:"VERBUM_LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})"`
	LogFormat string          `name:"log-format" env:"VERBUM_LOG_FORMAT" default:"text" enum:"text,json" help:"Log format (${enum})"`
}

// CLI defines the command-line interface for verbum.
type CLI struct {
	Globals

	Read    ReadCmd    `cmd:"" default:"withargs" help:"Interactive reader (default)"`
	Lookup  LookupCmd  `cmd:"" help:"Print a passage"`
	Next    NextCmd    `cmd:"" help:"Print the verse after a reference"`
	Prev    PrevCmd    `cmd:"" help:"Print the verse before a reference"`
	Search  SearchCmd  `cmd:"" help:"Keyword search"`
	Books   BooksCmd   `cmd:"" help:"List the books of the dataset"`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server"`
	Import  ImportCmd  `cmd:"" help:"Store a dataset as SQLite for faster loading"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// env carries the process streams so commands can be run from tests.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// load opens the dataset named by --bible.
func (g *Globals) load(ctx context.Context) (*corpus.Corpus, error) {
	if g.Bible == "" {
		return nil, coreerrors.NewValidation("bible", "no dataset given: use --bible or set BIBLE_PATH")
	}
	return loadCorpus(ctx, g.Bible)
}

func loadCorpus(ctx context.Context, name string) (*corpus.Corpus, error) {
	path, err := config.DatasetPath(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c, err := corpus.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	logging.CorpusLoaded(path, len(c.Books()), c.VerseTotal(), time.Since(start))
	return c, nil
}

// cliError is a parse or navigation failure worded for the reader.
type cliError struct {
	msg  string
	hint string
	err  error
}

func (e *cliError) Error() string {
	if e.hint == "" {
		return e.msg
	}
	return e.msg + "\n" + e.hint
}

func (e *cliError) Unwrap() error { return e.err }

func friendly(err error) error {
	var pe *ref.ParseError
	if errors.As(err, &pe) || errors.Is(err, navigate.ErrAtStart) || errors.Is(err, navigate.ErrAtEnd) {
		msg, hint := session.Describe(err)
		return &cliError{msg: msg, hint: hint, err: err}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReadCmd runs the interactive reader.
type ReadCmd struct {
	Ref   []string `arg:"" optional:"" help:"Passage to open first"`
	Plain bool     `help:"Disable colors and borders"`
}

func (c *ReadCmd) Run(g *Globals, e *env) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}
	r := render.NewStyled(e.stdout, !c.Plain && render.IsTerminal(e.stdout))
	return repl(e.ctx, session.New(acc, nil), r, e.stdin, strings.Join(c.Ref, " "))
}

// LookupCmd prints one passage.
type LookupCmd struct {
	Ref  []string `arg:"" help:"Reference, e.g. John 3:16 or Psalm 23:1-4"`
	JSON bool     `name:"json" help:"Print JSON"`
}

func (c *LookupCmd) Run(g *Globals, e *env) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}
	res, err := ref.NewParser(acc, nil).Parse(strings.Join(c.Ref, " "))
	if err != nil {
		return friendly(err)
	}
	return printPassage(e, acc, res.Locator, res, c.JSON)
}

// StepArgs are the arguments of next and prev.
type StepArgs struct {
	Ref  []string `arg:"" help:"Reference to step from"`
	JSON bool     `name:"json" help:"Print JSON"`
}

func (a *StepArgs) step(g *Globals, e *env, dir navigate.Direction) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}
	res, err := ref.NewParser(acc, nil).Parse(strings.Join(a.Ref, " "))
	if err != nil {
		return friendly(err)
	}
	loc, err := navigate.Advance(acc, res.Locator, dir)
	if err != nil {
		return friendly(err)
	}
	return printPassage(e, acc, loc, ref.Result{}, a.JSON)
}

// NextCmd prints the verse after a reference.
type NextCmd struct {
	StepArgs
}

func (c *NextCmd) Run(g *Globals, e *env) error { return c.step(g, e, navigate.Next) }

// PrevCmd prints the verse before a reference.
type PrevCmd struct {
	StepArgs
}

func (c *PrevCmd) Run(g *Globals, e *env) error { return c.step(g, e, navigate.Prev) }

// passageJSON is the --json form of a passage.
type passageJSON struct {
	Reference  string              `json:"reference"`
	Locator    ref.Locator         `json:"locator"`
	Verses     []corpus.Verse      `json:"verses"`
	Correction *session.Correction `json:"correction,omitempty"`
}

func printPassage(e *env, acc corpus.Accessor, loc ref.Locator, res ref.Result, asJSON bool) error {
	verses, err := ref.Passage(acc, loc)
	if err != nil {
		return friendly(err)
	}
	logging.Debug("reference_resolved", "input", res.Input, "reference", loc.String(), "match", res.Match.String(), "verses", len(verses))

	var correction *session.Correction
	if res.Corrected() {
		correction = &session.Correction{Canonical: loc.Book, Entered: res.Input}
		logging.Autocorrect(e.ctx, res.Input, loc.Book, res.Match.String())
	}

	if asJSON {
		return writeJSON(e.stdout, passageJSON{Reference: loc.String(), Locator: loc, Verses: verses, Correction: correction})
	}

	r := render.New(e.stdout)
	if correction != nil {
		if err := r.Corrected(correction.Canonical, correction.Entered); err != nil {
			return err
		}
	}
	return r.Passage(loc, verses)
}

// SearchCmd runs a keyword search.
type SearchCmd struct {
	Term    []string `arg:"" help:"Words to search for"`
	Mode    string   `default:"substring" enum:"substring,word" help:"Match mode (${enum})"`
	Book    string   `help:"Only search this book"`
	Page    int      `default:"1" help:"Result page"`
	PerPage int      `name:"per-page" default:"20" help:"Results per page (1-100)"`
	JSON    bool     `name:"json" help:"Print JSON"`
}

func (c *SearchCmd) Run(g *Globals, e *env) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}
	mode, err := search.ParseMode(c.Mode)
	if err != nil {
		return err
	}

	s := search.New(acc, time.Minute, 1)
	results, err := s.Search(e.ctx, search.Query{Term: strings.Join(c.Term, " "), Mode: mode, Book: c.Book})
	if err != nil {
		return err
	}
	page := search.Paginate(results, c.Page, c.PerPage)

	if c.JSON {
		return writeJSON(e.stdout, page)
	}

	r := render.New(e.stdout)
	if page.Total == 0 {
		return r.Hint("No matches.")
	}
	for _, grp := range page.Groups {
		fmt.Fprintf(e.stdout, "%s (%d)\n", grp.Book, grp.Count)
		for _, h := range grp.Verses {
			fmt.Fprintf(e.stdout, "  %s  %s\n", h.Reference, h.Text)
		}
	}
	summary := fmt.Sprintf("Page %d of %d, %d matches", page.Page, page.TotalPages, page.Total)
	if page.Truncated {
		summary += fmt.Sprintf(" (stopped at %d)", search.MaxResults)
	}
	return r.Hint(summary)
}

// BooksCmd lists the books of the dataset.
type BooksCmd struct {
	JSON bool `name:"json" help:"Print JSON"`
}

type bookJSON struct {
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
}

func (c *BooksCmd) Run(g *Globals, e *env) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}

	books := make([]bookJSON, 0, len(acc.Books()))
	for _, name := range acc.Books() {
		books = append(books, bookJSON{Name: name, Chapters: acc.ChapterCount(name)})
	}
	if c.JSON {
		return writeJSON(e.stdout, books)
	}
	for _, b := range books {
		fmt.Fprintf(e.stdout, "%-20s %3d\n", b.Name, b.Chapters)
	}
	return nil
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port           int           `env:"VERBUM_PORT" default:"8080" help:"HTTP server port"`
	APIKey         string        `name:"api-key" env:"VERBUM_API_KEY" help:"Require this key in X-API-Key (at least 16 characters)"`
	RateLimit      int           `name:"rate-limit" default:"120" help:"Requests per minute per client IP (0 disables)"`
	RateBurst      int           `name:"rate-burst" default:"20" help:"Rate limit burst size"`
	AllowedOrigins []string      `name:"allowed-origin" help:"Allowed CORS and websocket origin (repeatable; default any)"`
	CacheTTL       time.Duration `name:"cache-ttl" default:"10m" help:"Lifetime of cached search results"`
	CacheSize      int           `name:"cache-size" default:"256" help:"Maximum cached searches"`
}

func (c *ServeCmd) config() api.Config {
	cfg := api.DefaultConfig()
	cfg.Port = c.Port
	cfg.Version = version
	cfg.RateLimitRequests = c.RateLimit
	cfg.RateLimitBurst = c.RateBurst
	cfg.AllowedOrigins = c.AllowedOrigins
	cfg.SearchCacheTTL = c.CacheTTL
	cfg.SearchCacheSize = c.CacheSize
	if c.APIKey != "" {
		cfg.Auth = api.AuthConfig{Enabled: true, APIKey: c.APIKey}
	}
	return cfg
}

func (c *ServeCmd) Run(g *Globals, e *env) error {
	acc, err := g.load(e.ctx)
	if err != nil {
		return err
	}
	s, err := api.New(acc, c.config(), metrics.New())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx)
}

// ImportCmd converts a dataset into a SQLite database.
type ImportCmd struct {
	Src string `arg:"" help:"Dataset to import" type:"path"`
	Out string `required:"" short:"o" help:"SQLite database to create (.db, .sqlite, .sqlite3)" type:"path"`
}

func (c *ImportCmd) Run(e *env) error {
	if err := validation.ValidateFilename(filepath.Base(c.Out)); err != nil {
		return coreerrors.NewValidation("out", err.Error())
	}
	if format, _, err := corpus.DetectFormat(c.Out); err != nil || format != corpus.FormatSQLite {
		return coreerrors.NewValidation("out", "output must end in .db, .sqlite or .sqlite3")
	}

	corp, err := loadCorpus(e.ctx, c.Src)
	if err != nil {
		return err
	}
	if err := corpus.SaveSQLite(e.ctx, corp, c.Out); err != nil {
		return err
	}
	logging.Info("dataset imported", "src", c.Src, "out", c.Out)
	fmt.Fprintf(e.stdout, "Imported %d books (%d verses) into %s\n", len(corp.Books()), corp.VerseTotal(), c.Out)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(e.stdout, "verbum version %s\n", version)
	fmt.Fprintf(e.stdout, "sqlite driver: %s (%s)\n", info.DriverName, info.Package)
	return nil
}

// configPaths returns the configuration files kong should consult.
func configPaths() []string {
	if p := config.DefaultPath(); p != "" {
		return []string{p}
	}
	return nil
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, options ...kong.Option) error {
	var cli CLI
	e := &env{ctx: ctx, stdin: stdin, stdout: stdout, stderr: stderr}

	options = append([]kong.Option{
		kong.Name("verbum"),
		kong.Description("Scripture reference resolver and reader"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Configuration(config.YAML, configPaths()...),
		kong.Writers(stdout, stderr),
		kong.Bind(e, &cli.Globals),
	}, options...)

	parser, err := kong.New(&cli, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(stderr, level, format)

	return kctx.Run()
}

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verbum: %v\n", err)
		os.Exit(1)
	}
}
