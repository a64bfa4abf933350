// Package input provides implementations for acquisition modules.
// Input modules are responsible for producing the raw fixed-width text
// stream the decoder consumes. They are external collaborators to the
// core: the pipeline only sees the Module interface.
package input

import (
	"context"
	"io"
)

// Module represents an acquisition module that produces raw fixed-width
// text.
type Module interface {
	// Open acquires the raw dataset and returns a reader over its
	// fixed-width text lines. The caller owns the returned reader and
	// must close it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Close releases any resources held by the module.
	Close() error
}
