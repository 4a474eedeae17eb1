package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/observability"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

var errAuditDisabled = errors.New("auditing is disabled (set audit.backend or --backend)")

func newAuditCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}
	cmd.PersistentFlags().String("backend", "", "audit backend (default from audit.backend)")
	cmd.AddCommand(newAuditListCmd(v), newAuditCountCmd(v))
	return cmd
}

// runAudit opens the configured audit backend for the duration of fn.
func runAudit(cmd *cobra.Command, v *viper.Viper, name string, fn func(ctx context.Context, be auditlog.Backend, out *cli.Output) error) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	audit := cfg.Audit
	if b, _ := cmd.Flags().GetString("backend"); b != "" {
		audit.Backend = b
	}
	if audit.Backend == "" || audit.Backend == auditlog.Disabled {
		return errAuditDisabled
	}

	return cli.RunCommand(cli.CommandConfig{
		Name:       name,
		Viper:      v,
		Timeout:    30 * time.Second,
		Output:     cli.NewOutput(cli.ParseFormat(v.GetString("output")), cmd.OutOrStdout()),
		Extensions: []runtime.Extension{cli.WithAudit(audit, observability.NewMetrics())},
		Run: func(ctx context.Context, rt *runtime.Runtime, out *cli.Output) error {
			return fn(ctx, cli.Audit(rt), out)
		},
	})
}

func newAuditListCmd(v *viper.Viper) *cobra.Command {
	var (
		limit       int
		requestType string
		intent      string
		before      string
		after       string
		since       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audited invocations, newest first",
		Long: `List audited invocations, newest first.

Examples:
  arc-skill audit list
  arc-skill audit list --intent CaptureDivisionOperationIntent
  arc-skill audit list --since 1h -o json
  arc-skill audit list --backend sqlite --limit 10 --before 2026-01-02T03:04:05Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := auditlog.QueryOptions{Limit: limit, RequestType: requestType, Intent: intent}
			var err error
			if opts.Before, err = parseTime("before", before); err != nil {
				return err
			}
			if opts.After, err = parseTime("after", after); err != nil {
				return err
			}
			if since > 0 {
				opts.After = time.Now().Add(-since)
			}

			return runAudit(cmd, v, "audit-list", func(ctx context.Context, be auditlog.Backend, out *cli.Output) error {
				recs, err := be.List(ctx, opts)
				if err != nil {
					return fmt.Errorf("list: %w", err)
				}
				return renderAudit(out, recs, opts.EffectiveLimit())
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", auditlog.DefaultLimit, "maximum records")
	cmd.Flags().StringVar(&requestType, "type", "", "filter by request type")
	cmd.Flags().StringVar(&intent, "intent", "", "filter by intent name")
	cmd.Flags().StringVar(&before, "before", "", "only records older than this RFC 3339 time")
	cmd.Flags().StringVar(&after, "after", "", "only records newer than this RFC 3339 time")
	cmd.Flags().DurationVar(&since, "since", 0, "only records from the last duration (overrides --after)")
	return cmd
}

func newAuditCountCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count audited invocations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, v, "audit-count", func(ctx context.Context, be auditlog.Backend, out *cli.Output) error {
				n, err := be.Count(ctx)
				if err != nil {
					return fmt.Errorf("count: %w", err)
				}
				return out.KV("audit-count").Set("Records", cli.Count(n)).Render()
			})
		},
	}
}

func parseTime(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return t, nil
}

// renderAudit prints the records. A full page sets the cursor to the
// oldest timestamp so the next page can be fetched with --before.
func renderAudit(out *cli.Output, recs []*auditlog.Record, limit int) error {
	tbl := out.Table("audit", "Time", "When", "Request Type", "Intent", "Handler", "Outcome", "Latency", "Speech").
		AlignRight("Latency")
	for _, r := range recs {
		tbl.AddRow(
			r.Timestamp.Format(time.RFC3339Nano),
			cli.Ago(r.Timestamp),
			r.RequestType,
			r.Intent,
			r.Handler,
			r.Outcome,
			cli.Latency(r.Duration),
			r.Speech,
		)
	}
	if len(recs) > 0 && len(recs) >= limit {
		tbl.WithPagination(recs[len(recs)-1].Timestamp.Format(time.RFC3339Nano), true)
	}
	return tbl.Render()
}
