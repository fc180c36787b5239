package contracts

import "context"

// Transactor runs fn inside one database transaction: fn returning nil
// commits, anything else rolls back. Mutation services publish their
// events only after WithTx has returned nil.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
