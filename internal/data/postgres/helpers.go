// Package postgres provides PostgreSQL implementations of the domain repositories.
// Monetary columns are NUMERIC(19,2); they are written from canonical amount text
// and read back with ::text so no value ever passes through a float.
package postgres

import (
	"fmt"
	"strings"

	"github.com/financial-reconciliation-engine/internal/currency"
	"github.com/financial-reconciliation-engine/internal/domain/shared"
)

type scanner interface {
	Scan(dest ...any) error
}

// conditions accumulates WHERE clauses with positional arguments
type conditions struct {
	clauses []string
	args    []any
}

// add appends clause, whose single %d is replaced by the argument position
func (c *conditions) add(clause string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(clause, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// paged returns a LIMIT/OFFSET suffix and the arguments including it
func (c *conditions) paged(page shared.Pagination) (string, []any) {
	page = page.Normalize()
	args := append(append([]any{}, c.args...), page.Limit, page.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func amountArg(a currency.Amount) string {
	return a.String()
}

func scanAmount(column, text string) (currency.Amount, error) {
	a, err := currency.Parse(text)
	if err != nil {
		return currency.Zero, fmt.Errorf("invalid %s %q: %w", column, text, err)
	}
	return a, nil
}
