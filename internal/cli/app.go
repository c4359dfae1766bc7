// Package cli provides the votingctl command line application.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ballotkit/voting-dapp/client"
	"github.com/ballotkit/voting-dapp/config"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

// EnvironmentFunc builds the wallet capability for a loaded config.
type EnvironmentFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config) (client.Environment, error)

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Without it a logger is built from the config's log level.
func WithLogger(lggr logger.Logger) Option {
	return func(a *App) { a.lggr = lggr }
}

// WithPromptIO sets where the account access prompt reads from and writes to. Defaults to
// stdin and stderr.
func WithPromptIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.promptOut = in, out }
}

// WithEnvironmentFunc replaces how the environment is built from the config.
func WithEnvironmentFunc(fn EnvironmentFunc) Option {
	return func(a *App) { a.newEnv = fn }
}

// App is the votingctl application.
type App struct {
	lggr      logger.Logger
	in        io.Reader
	promptOut io.Writer
	newEnv    EnvironmentFunc

	configPath string
	rootCmd    *cobra.Command
}

// NewApp returns the application with all commands registered.
func NewApp(opts ...Option) *App {
	a := &App{
		in:        os.Stdin,
		promptOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.newEnv == nil {
		a.newEnv = a.configEnvironment
	}

	a.rootCmd = &cobra.Command{
		Use:           "votingctl",
		Short:         "Create proposals, vote and read results of the voting contract",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultFilePath,
		"Path to the config file. Environment variables override its values.")

	a.rootCmd.AddCommand(
		a.newServeCmd(),
		a.newProposeCmd(),
		a.newVoteCmd(),
		a.newGetCmd(),
		a.newProposalCmd(),
		a.newHasVotedCmd(),
		a.newConfigCmd(),
	)

	return a
}

// RootCmd returns the root command of the application.
func (a *App) RootCmd() *cobra.Command {
	return a.rootCmd
}

// Run executes the root command with args.
func (a *App) Run(ctx context.Context, args []string) error {
	a.rootCmd.SetArgs(args)

	return a.rootCmd.ExecuteContext(ctx)
}

// session is what every command needs after the config has been loaded.
type session struct {
	cfg  *config.Config
	lggr logger.Logger
}

func (a *App) load() (*session, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lggr := a.lggr
	if lggr == nil {
		lc, err := logger.ParseConfig(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		if lggr, err = lc.New(); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	return &session{cfg: cfg, lggr: lggr}, nil
}

func (s *session) environment(ctx context.Context, fn EnvironmentFunc) (client.Environment, error) {
	env, err := fn(ctx, s.lggr, s.cfg)
	if err != nil {
		return client.Environment{}, fmt.Errorf("failed to build wallet environment: %w", err)
	}

	return env, nil
}

// client loads the config and initializes the voting client.
func (a *App) client(ctx context.Context) (*client.Client, error) {
	s, err := a.load()
	if err != nil {
		return nil, err
	}

	env, err := s.environment(ctx, a.newEnv)
	if err != nil {
		return nil, err
	}

	return client.Initialize(ctx, s.lggr, env)
}

func (a *App) configEnvironment(_ context.Context, lggr logger.Logger, cfg *config.Config) (client.Environment, error) {
	return cfg.Environment(lggr, config.EnvironmentOptions{In: a.in, Out: a.promptOut})
}
