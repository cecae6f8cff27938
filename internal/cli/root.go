package cli

import (
	"github.com/financial-reconciliation-engine/internal/domain/shared"
	"github.com/spf13/cobra"
)

// DefaultConfigName is the config file base name read by reconctl (configs/reconctl.env)
const DefaultConfigName = "reconctl"

// RootCommand assembles the reconctl command tree
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "reconctl",
		Short: "Operate the financial reconciliation engine",
		Long: `reconctl runs reconciliation passes, verifies transactions, applies balance
corrections, resolves discrepancies and reports on the audit trail.

Configuration is read from configs/reconctl.env and the environment, the same
keys the admin API and the worker use.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.validateOutput()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configName, "config", DefaultConfigName, "Config file base name, looked up in ./configs and .")
	root.PersistentFlags().StringVar(&a.actor, "actor", "", "Operator recorded as the actor of changes")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "Output format: text or json")

	root.AddCommand(
		a.reconcileCommand(),
		a.reconciliationsCommand(),
		a.verifyCommand(),
		a.correctCommand(),
		a.correctionsCommand(),
		a.discrepanciesCommand(),
		a.auditCommand(),
		a.healthCommand(),
		a.migrateCommand(),
	)
	return root
}

// paging holds the --page and --limit flags of list commands
type paging struct {
	page  int
	limit int
}

func (p *paging) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&p.limit, "limit", 20, "Items per page, at most 100")
}

func (p *paging) pagination() shared.Pagination {
	return shared.Pagination{Page: p.page, Limit: p.limit}
}
