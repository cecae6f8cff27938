package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ErrVerificationFailed is returned, after the result is printed, when a transaction fails a check
var ErrVerificationFailed = errors.New("transaction failed verification")

func (a *App) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TRANSACTION_ID",
		Short: "Run the integrity checks against one ledger transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid transaction id %q: %w", args[0], err)
			}
			services, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			result, err := services.Verification.Verify(cmd.Context(), id)
			if err != nil {
				return err
			}
			err = a.render(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Transaction:\t%s\n", result.TransactionID)
				fmt.Fprintf(w, "Valid:\t%t\n", result.IsValid)
				for _, issue := range result.Issues {
					fmt.Fprintf(w, "  %s\t%s\n", issue.Check, issue.Description)
				}
			})
			if err != nil {
				return err
			}
			if !result.IsValid {
				return ErrVerificationFailed
			}
			return nil
		},
	}
}
