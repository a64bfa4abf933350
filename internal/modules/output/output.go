// Package output provides implementations for writer modules.
// Output modules are responsible for serializing the filtered table to a
// destination. They are external collaborators to the core: the pipeline
// hands over the finished table and the core does not dictate the output
// format.
package output

import (
	"context"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// Module represents a writer module that serializes a table to a
// destination.
type Module interface {
	// Write serializes the table. Returns the number of rows written and
	// any error.
	Write(ctx context.Context, t *table.Table) (int, error)

	// Close releases any resources held by the module.
	Close() error
}
