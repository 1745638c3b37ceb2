package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"QuestionsScanner/internal/app"
	"QuestionsScanner/internal/domain"
)

func newCheckCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve every configured source and report which can be monitored",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, v)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(rt.cfg.Monitor.Sources) == 0 {
				return fmt.Errorf("%w: monitor.sources is empty", domain.ErrConfigurationInvalid)
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			res, err := app.CheckSources(ctx, rt.cfg, rt.opts, rt.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, src := range res.Valid {
				fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("✓"), src.Locator, src.DisplayName)
			}
			for _, locator := range rt.cfg.Monitor.Sources {
				if err, failed := res.Failed[locator]; failed {
					fmt.Fprintf(out, "%s %s: %s\n", color.RedString("✗"), locator, domain.ErrorKind(err))
				}
			}
			fmt.Fprintf(out, "\n%d of %d sources usable\n", len(res.Valid), len(rt.cfg.Monitor.Sources))

			if len(res.Valid) == 0 {
				return domain.ErrNoValidSources
			}
			return nil
		},
	}
}
