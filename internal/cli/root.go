package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"QuestionsScanner/internal/app"
	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/logging"
)

// Version is overridden at build time with -ldflags "-X QuestionsScanner/internal/cli.Version=...".
var Version = "dev"

const envPrefix = "QSCAN"

// invocation is what every command needs after flags and config are resolved.
type invocation struct {
	cfg    config.Config
	opts   app.Options
	logger *slog.Logger
	closer io.Closer
}

func (r *invocation) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Execute runs the root command with OS arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Each call gets its own viper
// instance so flags and QSCAN_* variables never leak between runs.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "questionsscanner",
		Short: "Find answerable questions in Telegram chats and forward them to a bot",
		Long: `questionsscanner reads recent messages from public Telegram chats,
keeps messages that look like real questions, asks a language model whether
they fit the chat topic and can be answered confidently, and forwards the
survivors to an operator chat through the Bot API.

Without a subcommand it runs the monitoring loop.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML); also QSCAN_CONFIG")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or text")
	flags.Bool("dry-run", false, "print notifications instead of sending, keep delivery records in memory")
	flags.String("fixture", "", "YAML chats served under the memory: locator scheme")
	for _, name := range []string{"config", "log-level", "log-format", "dry-run", "fixture"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	run := newRunCommand(v)
	root.RunE = run.RunE

	root.AddCommand(
		run,
		newOnceCommand(v),
		newCheckCommand(v),
		newStatsCommand(v),
		newCleanupCommand(v),
		newConfigCommand(v),
		newVersionCommand(),
	)
	return root
}

// loadRuntime reads config, applies flag overrides and opens the logger.
func loadRuntime(cmd *cobra.Command, v *viper.Viper) (*invocation, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format := v.GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}

	logger, closer, err := logging.Open(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	return &invocation{
		cfg: cfg,
		opts: app.Options{
			DryRun:  v.GetBool("dry-run"),
			Fixture: v.GetString("fixture"),
			Out:     cmd.OutOrStdout(),
		},
		logger: logger,
		closer: closer,
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "questionsscanner %s\n", Version)
		},
	}
}
