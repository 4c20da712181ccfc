package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"astro-service/ephemeris"
	"astro-service/models"

	"github.com/spf13/cobra"
)

var voidsCmd = &cobra.Command{
	Use:   "voids",
	Short: "Print lunar void-of-course periods",
	Long:  "Print every void-of-course period whose sign ingress falls in (from, to]. Times are UTC.",
	RunE:  runVoids,
}

func init() {
	voidsCmd.Flags().String("from", "", "range start, RFC 3339 or YYYY-MM-DD (default now)")
	voidsCmd.Flags().String("to", "", "range end, RFC 3339 or YYYY-MM-DD (default from + 7 days)")
	voidsCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(voidsCmd)
}

func runVoids(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	from := time.Now().UTC().Truncate(time.Hour)
	if fromFlag != "" {
		if from, err = parseFlagTime(fromFlag); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	to := from.AddDate(0, 0, 7)
	if toFlag != "" {
		if to, err = parseFlagTime(toFlag); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	detector := newDetector(cfg, ephemeris.New())
	periods, err := detector.VoidPeriods(from, to)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(periods)
	}
	return printVoids(cmd.OutOrStdout(), periods)
}

func printVoids(out io.Writer, periods []models.VoidPeriod) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tDURATION\tSIGN\tLAST ASPECT")
	for _, p := range periods {
		last := "-"
		if p.LastAspect != nil {
			last = fmt.Sprintf("%s %s", p.LastAspect.Type, p.LastAspect.Planet)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s -> %s\t%s\n",
			p.Start.Format("2006-01-02 15:04"), p.End.Format("2006-01-02 15:04"),
			time.Duration(p.DurationMinutes)*time.Minute, p.MoonSign, p.NextSign, last)
	}
	return tw.Flush()
}

// parseFlagTime accepts RFC 3339 or a bare date at midnight UTC
func parseFlagTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, value)
}
