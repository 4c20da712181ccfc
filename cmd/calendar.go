package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"astro-service/ephemeris"
	"astro-service/logger"
	"astro-service/moon"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Moon calendar commands",
}

var calendarSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Precompute void-of-course periods into the database",
	RunE:  runCalendarSeed,
}

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the moon calendar as JSON",
	RunE:  runCalendarShow,
}

func init() {
	for _, c := range []*cobra.Command{calendarSeedCmd, calendarShowCmd} {
		c.Flags().String("from", "", "first UTC date, YYYY-MM-DD (default today)")
		c.Flags().Int("days", 30, "number of days")
		calendarCmd.AddCommand(c)
	}
	rootCmd.AddCommand(calendarCmd)
}

func calendarRange(cmd *cobra.Command) (time.Time, int, error) {
	fromFlag, _ := cmd.Flags().GetString("from")
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return time.Time{}, 0, fmt.Errorf("--days must be positive, got %d", days)
	}
	from := time.Now().UTC().Truncate(24 * time.Hour)
	if fromFlag != "" {
		t, err := time.Parse(time.DateOnly, fromFlag)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("--from: %w", err)
		}
		from = t
	}
	return from, days, nil
}

func runCalendarSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	from, days, err := calendarRange(cmd)
	if err != nil {
		return err
	}
	to := from.AddDate(0, 0, days)

	db, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	started := time.Now()
	periods, err := newDetector(cfg, ephemeris.New()).VoidPeriods(from, to)
	if err != nil {
		return err
	}
	if err := db.SaveVoidPeriods(cmd.Context(), from, to, periods); err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"from":     from.Format(time.DateOnly),
		"days":     days,
		"periods":  len(periods),
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("Seeded void-of-course periods")
	return nil
}

func runCalendarShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	from, days, err := calendarRange(cmd)
	if err != nil {
		return err
	}

	eph := ephemeris.New()
	calendar, err := moon.Calendar(eph, newDetector(cfg, eph), from, days)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(calendar)
}
