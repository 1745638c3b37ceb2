package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"QuestionsScanner/internal/app"
	"QuestionsScanner/internal/domain"
)

func newStatsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many questions were delivered",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, v)
			if err != nil {
				return err
			}
			defer rt.Close()

			store, err := app.OpenStore(cmd.Context(), rt.cfg.Storage, rt.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			stats := store.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", color.New(color.Bold).Sprint("Delivered questions"))
			fmt.Fprintf(out, "  total:         %s\n", color.CyanString("%d", stats.Total))
			fmt.Fprintf(out, "  last 24 hours: %s\n", color.CyanString("%d", stats.Last24h))
			fmt.Fprintf(out, "  last 7 days:   %s\n", color.CyanString("%d", stats.Last7d))
			return nil
		},
	}
}

func newCleanupCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete delivery records older than the retention period",
		Long: `Delete delivery records older than storage.retentionDays, or --days if given.

Examples:
  questionsscanner cleanup            # use storage.retentionDays
  questionsscanner cleanup --days 7   # keep one week`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, v)
			if err != nil {
				return err
			}
			defer rt.Close()

			days, _ := cmd.Flags().GetInt("days")
			if days == 0 {
				days = rt.cfg.Storage.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("%w: retention days must be positive, got %d", domain.ErrConfigurationInvalid, days)
			}

			store, err := app.OpenStore(cmd.Context(), rt.cfg.Storage, rt.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted := store.CleanupOlderThan(cmd.Context(), days)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s record(s) older than %d days\n", color.YellowString("%d", deleted), days)
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "retention period in days (default storage.retentionDays)")
	return cmd
}
