package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/player"
	"github.com/desertthunder/relisten/internal/remote"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	remote     *remote.Client
	resolver   player.Resolver
	namespaces *repositories.Namespaces
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Resolver defaults to the remote client.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Remote     *remote.Client
	Resolver   player.Resolver
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Remote == nil {
		opts.Remote = remote.NewClient(opts.Config, opts.Logger)
	}
	if opts.Resolver == nil {
		opts.Resolver = opts.Remote
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		remote:     opts.Remote,
		resolver:   opts.Resolver,
		namespaces: repositories.NewNamespaces(opts.Config.Database, opts.Config.DatabasePath, opts.Logger),
	}
}

// Close closes the open namespace.
func (r *Runner) Close() error {
	return r.namespaces.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, libraryCommand, queueCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open switches to the namespace named by the --user flag, falling back to the configured user.
func (r *Runner) open(ctx context.Context, cmd *cli.Command) (*repositories.Store, error) {
	user := cmd.String("user")
	if user == "" {
		user = r.config.Remote.User
	}
	store, err := r.namespaces.Switch(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to open library for %s: %w", user, err)
	}
	return store, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}
