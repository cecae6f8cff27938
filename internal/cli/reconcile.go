package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/reconciliation"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *App) reconcileCommand() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a reconciliation pass for one day",
		Long: `Compare the expected balance of every account, derived from the ledger, with
its stored balance for the given day. Each run appends a new reconciliation record.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			request := &shared.ReconcileRequest{
				RequestID:     uuid.New(),
				Date:          date,
				CorrelationID: uuid.NewString(),
				Timestamp:     time.Now().UTC(),
			}
			if actorID := a.actorID(); actorID != nil {
				request.RequestedBy = *actorID
			}

			record, err := services.Reconciliation.Reconcile(cmd.Context(), request)
			if err != nil {
				return err
			}
			return a.render(record, func(w *tabwriter.Writer) {
				a.printRecord(w, record)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to reconcile as YYYY-MM-DD, today when empty")
	return cmd
}

func (a *App) reconciliationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reconciliations",
		Aliases: []string{"records"},
		Short:   "Inspect reconciliation records",
	}

	var (
		pages  paging
		date   string
		status string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List reconciliation records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter reconciliation.RecordFilter
			if date != "" {
				if _, err := time.Parse(reconciliation.DateLayout, date); err != nil {
					return reconciliation.ErrInvalidDate{Value: date}
				}
				filter.Date = &date
			}
			if status != "" {
				s := reconciliation.Status(status)
				if s != reconciliation.StatusReconciled && s != reconciliation.StatusDiscrepancyFound {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}

			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			result, err := services.Query.ListReconciliations(cmd.Context(), filter, pages.pagination())
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "RECORD\tDATE\tSTATUS\tACCOUNTS\tDISCREPANCIES\tCREATED")
				for _, r := range result.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
						r.ID, r.Date, r.Status, len(r.ExpectedBalances), len(r.Discrepancies), r.CreatedAt.Format(time.RFC3339))
				}
				printPage(w, result.Page, result.Limit, result.Total)
			})
		},
	}
	pages.bind(list)
	list.Flags().StringVar(&date, "date", "", "Only records for this day (YYYY-MM-DD)")
	list.Flags().StringVar(&status, "status", "", "RECONCILED or DISCREPANCY_FOUND")

	show := &cobra.Command{
		Use:   "show RECORD_ID",
		Short: "Show one reconciliation record with its discrepancies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid record id %q: %w", args[0], err)
			}
			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			record, err := services.Query.GetReconciliation(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(record, func(w *tabwriter.Writer) {
				a.printRecord(w, record)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (a *App) printRecord(w *tabwriter.Writer, record *reconciliation.Record) {
	fmt.Fprintf(w, "Record:\t%s\n", record.ID)
	fmt.Fprintf(w, "Date:\t%s\n", record.Date)
	fmt.Fprintf(w, "Status:\t%s\n", record.Status)
	fmt.Fprintf(w, "Accounts:\t%d\n", len(record.ExpectedBalances))
	fmt.Fprintf(w, "Discrepancies:\t%d\n\n", len(record.Discrepancies))
	a.printAlerts(w, record.Discrepancies)
}
