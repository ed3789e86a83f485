package ports

import "context"

// AssetStore reads stimulus, coin and Pavlovian images by their relative path.
type AssetStore interface {
	File(ctx context.Context, path string) ([]byte, error)
}
