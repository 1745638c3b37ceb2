package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"QuestionsScanner/internal/app"
	"QuestionsScanner/internal/domain"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Monitor the configured sources until interrupted",
		Long: `Validate every configured source once, announce the start to the
operator chat, then process all valid sources every monitor.interval.
Sources that fail validation are skipped until restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, v)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := validate(rt); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			application, err := app.New(ctx, rt.cfg, rt.opts, rt.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					rt.logger.Warn("shutdown", "error", err)
				}
			}()

			return application.Run(ctx)
		},
	}
}

func newOnceCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Process every configured source once and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, v)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := validate(rt); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			application, err := app.New(ctx, rt.cfg, rt.opts, rt.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			res, err := application.Once(ctx)
			if err != nil {
				return err
			}
			printIteration(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func validate(rt *invocation) error {
	if rt.opts.DryRun {
		return rt.cfg.ValidateOffline()
	}
	return rt.cfg.Validate()
}

func printIteration(w io.Writer, res domain.IterationResult) {
	for _, locator := range res.Sources() {
		if kind, failed := res.Failed[locator]; failed {
			fmt.Fprintf(w, "%s %s: %s\n", color.RedString("✗"), locator, kind)
			continue
		}
		fmt.Fprintf(w, "%s %s: %d\n", color.GreenString("✓"), locator, res.Delivered[locator])
	}
	fmt.Fprintf(w, "\nDelivered: %s (run %s)\n", color.CyanString("%d", res.Total()), res.RunID)
}
