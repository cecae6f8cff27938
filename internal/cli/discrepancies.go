package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *App) discrepanciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "discrepancies",
		Aliases: []string{"alerts"},
		Short:   "List and resolve discrepancy alerts",
	}

	var (
		pages     paging
		status    string
		severity  string
		accountID string
		from      string
		to        string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List discrepancy alerts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter reconciliation.AlertFilter
			if status != "" {
				s := reconciliation.AlertStatus(strings.ToUpper(status))
				if s != reconciliation.AlertStatusOpen && s != reconciliation.AlertStatusResolved {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}
			if severity != "" {
				s := reconciliation.Severity(strings.ToUpper(severity))
				if s != reconciliation.SeverityLow && s != reconciliation.SeverityMedium && s != reconciliation.SeverityHigh {
					return fmt.Errorf("unknown severity %q", severity)
				}
				filter.Severity = &s
			}
			var err error
			if filter.AccountID, err = optionalUUID("account", accountID); err != nil {
				return err
			}
			if filter.From, err = a.optionalTime("from", from); err != nil {
				return err
			}
			if filter.To, err = a.optionalTime("to", to); err != nil {
				return err
			}

			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			result, err := services.Query.ListDiscrepancies(cmd.Context(), filter, pages.pagination())
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				a.printAlerts(w, result.Items)
				printPage(w, result.Page, result.Limit, result.Total)
			})
		},
	}
	pages.bind(list)
	list.Flags().StringVar(&status, "status", "", "OPEN or RESOLVED")
	list.Flags().StringVar(&severity, "severity", "", "LOW, MEDIUM or HIGH")
	list.Flags().StringVar(&accountID, "account", "", "Only alerts of this account")
	list.Flags().StringVar(&from, "from", "", "Raised at or after (YYYY-MM-DD or RFC3339)")
	list.Flags().StringVar(&to, "to", "", "Raised before (YYYY-MM-DD or RFC3339)")

	var notes string
	resolve := &cobra.Command{
		Use:   "resolve ALERT_ID",
		Short: "Resolve an open discrepancy alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid alert id %q: %w", args[0], err)
			}
			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			alert, err := services.Discrepancy.Resolve(cmd.Context(), id, notes, a.actorID())
			if err != nil {
				return err
			}
			return a.render(alert, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Alert:\t%s\n", alert.ID)
				fmt.Fprintf(w, "Status:\t%s\n", alert.Status)
				if alert.ResolvedBy != nil {
					fmt.Fprintf(w, "Resolved by:\t%s\n", *alert.ResolvedBy)
				}
				if alert.ResolutionNotes != nil {
					fmt.Fprintf(w, "Notes:\t%s\n", *alert.ResolutionNotes)
				}
			})
		},
	}
	resolve.Flags().StringVar(&notes, "notes", "", "How the discrepancy was resolved")
	_ = resolve.MarkFlagRequired("notes")

	cmd.AddCommand(list, resolve)
	return cmd
}
