package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fatture-in-chat/constants"
	"github.com/joseph-ayodele/fatture-in-chat/internal/common"
	"github.com/joseph-ayodele/fatture-in-chat/internal/export"
	"github.com/joseph-ayodele/fatture-in-chat/internal/repository"
)

type auditFlags struct {
	entityID string
	outcome  string
	since    string
	until    string
	limit    int
}

func (f auditFlags) filter(loc *time.Location) (repository.ListFilter, error) {
	out := repository.ListFilter{EntityID: f.entityID, Limit: f.limit}
	switch strings.ToUpper(strings.TrimSpace(f.outcome)) {
	case "":
	case string(constants.OutcomeSuccess):
		out.Outcome = constants.OutcomeSuccess
	case string(constants.OutcomeFailure):
		out.Outcome = constants.OutcomeFailure
	default:
		return out, fmt.Errorf("--outcome must be SUCCESS or FAILURE")
	}
	if f.since != "" {
		t, err := time.ParseInLocation(common.ISODateLayout, f.since, loc)
		if err != nil {
			return out, fmt.Errorf("--since: %w", err)
		}
		out.Since = &t
	}
	if f.until != "" {
		t, err := time.ParseInLocation(common.ISODateLayout, f.until, loc)
		if err != nil {
			return out, fmt.Errorf("--until: %w", err)
		}
		// inclusive day
		t = t.AddDate(0, 0, 1)
		out.Until = &t
	}
	return out, nil
}

func (f *auditFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.entityID, "entity", "", "entity id filter")
	cmd.Flags().StringVar(&f.outcome, "outcome", "", "SUCCESS or FAILURE")
	cmd.Flags().StringVar(&f.since, "since", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.until, "until", "", "last day, YYYY-MM-DD")
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Inspect the tool invocation audit trail"}
	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditExportCmd())
	return cmd
}

func withAuditRepo(ctx context.Context, fn func(ctx context.Context, cfg *common.Config, r repository.ToolInvocationRepository) error) error {
	cfg := loadConfig()
	logger := newLogger(cfg.Log.Level)
	db, err := repository.Open(ctx, repository.Config{Driver: cfg.Audit.Driver, DSN: cfg.Audit.DSN}, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, cfg, repository.NewToolInvocationRepository(db, logger))
}

func auditListCmd() *cobra.Command {
	var (
		f      auditFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded tool invocations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuditRepo(cmd.Context(), func(ctx context.Context, cfg *common.Config, r repository.ToolInvocationRepository) error {
				loc := cfg.Chat.Location()
				filter, err := f.filter(loc)
				if err != nil {
					return err
				}
				rows, err := r.List(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Data", "Strumento", "Entità", "Esito", "Imponibile", "IVA", "Totale", "Motivo"})
				for _, row := range rows {
					tw.AppendRow(table.Row{
						row.CreatedAt.In(loc).Format("2006-01-02 15:04"),
						row.ToolName,
						row.EntityID,
						row.Outcome,
						fmt.Sprintf("%.2f", row.Taxable),
						fmt.Sprintf("%.2f", row.Tax),
						fmt.Sprintf("%.2f", row.Total),
						export.Truncate(row.Reason, 60),
					})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "", "", "Righe", len(rows)})
				tw.Render()
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.limit, "limit", 50, "maximum rows, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func auditExportCmd() *cobra.Command {
	var (
		f   auditFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded tool invocations to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out required")
			}
			return withAuditRepo(cmd.Context(), func(ctx context.Context, cfg *common.Config, r repository.ToolInvocationRepository) error {
				loc := cfg.Chat.Location()
				filter, err := f.filter(loc)
				if err != nil {
					return err
				}
				b, err := export.NewService(r, loc, slog.Default()).ExportInvocationsXLSX(ctx, filter)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, b, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output .xlsx path")
	return cmd
}
