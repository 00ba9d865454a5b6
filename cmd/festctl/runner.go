package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/database"
)

// Runner holds the dependencies shared by every command.  The database is
// opened on first use so that --help works without configuration.
type Runner struct {
	logger *log.Logger
	output io.Writer
	load   func() config.Config
	open   func(config.Config) (*sql.DB, error)

	cfg config.Config
	db  *sql.DB
}

// RunnerOpts configures a Runner.  Nil fields get production defaults.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
	Load   func() config.Config
	Open   func(config.Config) (*sql.DB, error)
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Load == nil {
		opts.Load = config.Load
	}
	if opts.Open == nil {
		opts.Open = database.Open
	}
	return &Runner{logger: opts.Logger, output: opts.Output, load: opts.Load, open: opts.Open}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		migrateCommand, importCommand, syncCommand, promoteCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// database loads configuration and opens the database once.
func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	r.cfg = r.load()
	db, err := r.open(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db, r.cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *Runner) writePlainln(format string, args ...any) {
	fmt.Fprintf(r.output, format+"\n", args...)
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
