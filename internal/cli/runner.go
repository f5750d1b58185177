package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/postboard/internal/app"
	"github.com/idilsaglam/postboard/internal/config"
	"github.com/idilsaglam/postboard/internal/logging"
	"github.com/idilsaglam/postboard/internal/store/remote"
	"github.com/idilsaglam/postboard/internal/ui"
)

// Options carry build information from main.
type Options struct {
	Version string
}

// usageError marks mistakes in how the command was invoked (exit code 2).
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	config   string
	endpoint string
	resource string
	timeout  time.Duration
	logLevel string
	logFile  string
	theme    string
	color    bool
	noColor  bool
}

// session is what a subcommand runs with once flags are resolved.
type session struct {
	cfg    config.Config
	log    *logrus.Logger
	closer io.Closer
	client *remote.Client
	ctrl   *app.Controller
}

func (s *session) close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	s := &session{}
	defer s.close()

	root := newRootCmd(opt, s)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		ui.Fail(ue.Error())
		ui.Hint("Hint: run `postboard --help` for usage")
		return 2
	}
	ui.Fail(err.Error())
	return 1
}

func newRootCmd(opt Options, s *session) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "postboard",
		Short:         "Browse and edit the posts of a remote document store",
		Version:       opt.Version,
		Args:          noArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(s)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "YAML config file (default $POSTBOARD_CONFIG)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "store root URL (default "+config.DefaultEndpoint+")")
	pf.StringVar(&flags.resource, "resource", "", "collection name (default posts)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per-request timeout (default 15s)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file (rotated)")
	pf.StringVar(&flags.theme, "theme", "", "output theme: classic|neon|mono")
	pf.BoolVar(&flags.color, "color", false, "force colored output")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return s.open(cmd, flags)
	}

	root.AddCommand(
		newTUICmd(s),
		newListCmd(s),
		newAddCmd(s),
		newEditCmd(s),
		newRemoveCmd(s),
		newExportCmd(s),
		newImportCmd(s),
		newEmulateCmd(s),
	)
	return root
}

// open resolves configuration, logging and the store client.
func (s *session) open(cmd *cobra.Command, f *rootFlags) error {
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if pf.Changed("resource") {
		cfg.Resource = f.resource
	}
	if pf.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if pf.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if pf.Changed("theme") {
		cfg.Theme = f.theme
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	s.cfg = cfg

	ui.SetTheme(cfg.Theme)
	if f.color || f.noColor {
		ui.SetColorForcing(f.color, f.noColor)
	}

	log, closer, err := logging.New(logOptions(cfg, interactive(cmd)))
	if err != nil {
		return err
	}
	s.log, s.closer = log, closer

	client, err := remote.New(remote.Config{
		Endpoint: cfg.Endpoint,
		Resource: cfg.Resource,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return usageError{err}
	}
	s.client = client
	s.ctrl = app.NewController(client, app.NewState(), log)
	log.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"resource": cfg.Resource,
		"command":  cmd.Name(),
	}).Debug("session opened")
	return nil
}

// logOptions keeps the terminal clean: the TUI logs only to a file, and the
// other commands print warnings and errors to stderr when no file is set.
func logOptions(cfg config.Config, tui bool) logging.Options {
	opt := logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}
	if opt.File != "" {
		return opt
	}
	if tui {
		return opt
	}
	opt.Console = os.Stderr
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil && lvl > logrus.WarnLevel {
		opt.Level = logrus.WarnLevel.String()
	}
	return opt
}

func interactive(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s: unknown command or argument %q", cmd.CommandPath(), args[0])
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func maxArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
