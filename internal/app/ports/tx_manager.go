package ports

import "context"

// TxManager runs fn so that every TrialResultRepository write made with the ctx
// it receives is committed together, or not at all when fn fails.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
