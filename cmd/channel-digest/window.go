package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/channel-digest/internal/config"
	"github.com/ryosukesatoh/channel-digest/internal/store"
	"github.com/ryosukesatoh/channel-digest/internal/window"
)

func windowCmd() *cobra.Command {
	var (
		at     string
		period int
	)
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print the stored records of the current summary window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadLocal(configPath)
			if err != nil {
				return err
			}

			end := time.Now()
			if at != "" {
				end, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
			}
			p := cfg.Period()
			if period > 0 {
				p = time.Duration(period) * time.Minute
			}

			logger := newLogger(cfg.Log)
			sel := window.NewSelector(store.New(cfg.Store.Dir, cfg.Store.Prefix, logger), logger)
			printWindow(cmd.OutOrStdout(), window.Bounds(end, p), sel.Select(end, p))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "window end as RFC 3339 (default: now)")
	cmd.Flags().IntVar(&period, "period", 0, "window length in minutes (default: summary_period_minutes)")
	return cmd
}

func printWindow(w io.Writer, win window.Window, records []store.Record) {
	fmt.Fprintf(w, "Window %s .. %s: %d records\n",
		win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339), len(records))
	if len(records) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Channel", "Message"})
	table.SetAutoWrapText(true)
	table.SetColWidth(80)
	for _, r := range records {
		table.Append([]string{r.Timestamp.Format(time.RFC3339), r.Source, r.Text})
	}
	table.Render()
}
