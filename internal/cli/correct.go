package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/financial-reconciliation-engine/internal/domain/correction"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *App) correctCommand() *cobra.Command {
	var (
		accountID string
		current   string
		correct   string
		reason    string
		evidence  string
	)
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Overwrite an account's stored balance with an audited correction",
		Long: `Apply an administrative balance correction. The stored balance becomes
--correct; --current is the balance the operator observed. The adjustment is
booked in the ledger and recorded in the audit trail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", accountID, err)
			}
			request := correction.Request{
				AccountID:      id,
				CurrentBalance: current,
				CorrectBalance: correct,
				Reason:         reason,
			}
			if evidence != "" {
				request.Evidence = &evidence
			}

			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			applied, err := services.Correction.CorrectBalance(cmd.Context(), request, a.actorID())
			if err != nil {
				return err
			}
			return a.render(applied, func(w *tabwriter.Writer) {
				a.printCorrection(w, applied)
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account to correct")
	cmd.Flags().StringVar(&current, "current", "", "Balance currently shown for the account")
	cmd.Flags().StringVar(&correct, "correct", "", "Balance the account should have")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the correction is needed")
	cmd.Flags().StringVar(&evidence, "evidence", "", "Reference to supporting evidence")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("correct")
	return cmd
}

func (a *App) printCorrection(w *tabwriter.Writer, c *correction.BalanceCorrection) {
	f := a.formatter()
	fmt.Fprintf(w, "Correction:\t%s\n", c.ID)
	fmt.Fprintf(w, "Account:\t%s\n", c.AccountID)
	fmt.Fprintf(w, "Type:\t%s\n", c.Type)
	fmt.Fprintf(w, "Previous balance:\t%s\n", f.Format(c.PreviousBalance))
	fmt.Fprintf(w, "New balance:\t%s\n", f.Format(c.NewBalance))
	fmt.Fprintf(w, "Difference:\t%s\n", f.Format(c.Difference))
	if c.TransactionID != nil {
		fmt.Fprintf(w, "Ledger adjustment:\t%s\n", *c.TransactionID)
	}
	if c.ConcurrencyWarning {
		fmt.Fprintf(w, "Warning:\tbalance was %s when the correction was applied\n", f.Format(c.ObservedBalance))
	}
}

func (a *App) correctionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Inspect applied balance corrections",
	}

	var (
		pages     paging
		accountID string
		from      string
		to        string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List balance corrections, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter correction.Filter
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
			result, err := services.Query.ListCorrections(cmd.Context(), filter, pages.pagination())
			if err != nil {
				return err
			}
			return a.render(result, func(w *tabwriter.Writer) {
				f := a.formatter()
				fmt.Fprintln(w, "CORRECTION\tACCOUNT\tPREVIOUS\tNEW\tDIFFERENCE\tACTOR\tCREATED")
				for _, c := range result.Items {
					actor := "-"
					if c.ActorID != nil {
						actor = *c.ActorID
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						c.ID, c.AccountID, f.Format(c.PreviousBalance), f.Format(c.NewBalance), f.Format(c.Difference), actor, c.CreatedAt.Format(time.RFC3339))
				}
				printPage(w, result.Page, result.Limit, result.Total)
			})
		},
	}
	pages.bind(list)
	list.Flags().StringVar(&accountID, "account", "", "Only corrections of this account")
	list.Flags().StringVar(&from, "from", "", "Created at or after (YYYY-MM-DD or RFC3339)")
	list.Flags().StringVar(&to, "to", "", "Created before (YYYY-MM-DD or RFC3339)")

	cmd.AddCommand(list)
	return cmd
}

func optionalUUID(name, text string) (*uuid.UUID, error) {
	if text == "" {
		return nil, nil
	}
	id, err := uuid.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", name, text, err)
	}
	return &id, nil
}

// optionalTime parses a day in the reconciliation timezone or an RFC3339 timestamp
func (a *App) optionalTime(name, text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}
	loc := time.UTC
	if cfg, err := a.config(); err == nil {
		loc = cfg.Reconciliation.Location()
	}
	if t, err := time.ParseInLocation("2006-01-02", text, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD or RFC3339", name, text)
	}
	return &t, nil
}
