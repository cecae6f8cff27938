package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/health"
	"github.com/spf13/cobra"
)

func (a *App) healthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Take and list financial health snapshots",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Check outstanding discrepancies and balance anomalies now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			check, err := services.Health.MonitorFinancialHealth(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(check, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Check:\t%s\n", check.ID)
				fmt.Fprintf(w, "Status:\t%s\n", check.Status)
				fmt.Fprintf(w, "Outstanding discrepancies:\t%d\n", check.Metrics.OutstandingDiscrepancies)
				fmt.Fprintf(w, "Balance anomalies:\t%d\n", len(check.Metrics.BalanceAnomalies))
				for _, alert := range check.Alerts {
					fmt.Fprintf(w, "  %s\t%s\n", alert.Type, alert.Message)
				}
			})
		},
	}

	var (
		pages  paging
		status string
		from   string
		to     string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List past health checks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter health.Filter
			if status != "" {
				s := health.Status(strings.ToUpper(status))
				if s != health.StatusHealthy && s != health.StatusIssuesDetected {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}
			var err error
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
			result, err := services.Query.ListHealthChecks(cmd.Context(), filter, pages.pagination())
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "CHECK\tSTATUS\tOPEN DISCREPANCIES\tANOMALIES\tCREATED")
				for _, c := range result.Items {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
						c.ID, c.Status, c.Metrics.OutstandingDiscrepancies, len(c.Metrics.BalanceAnomalies), c.CreatedAt.Format(time.RFC3339))
				}
				printPage(w, result.Page, result.Limit, result.Total)
			})
		},
	}
	pages.bind(list)
	list.Flags().StringVar(&status, "status", "", "HEALTHY or ISSUES_DETECTED")
	list.Flags().StringVar(&from, "from", "", "Taken at or after (YYYY-MM-DD or RFC3339)")
	list.Flags().StringVar(&to, "to", "", "Taken before (YYYY-MM-DD or RFC3339)")

	cmd.AddCommand(run, list)
	return cmd
}
