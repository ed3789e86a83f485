package assets

import (
	"context"
	"errors"
	"mime"
	"path"
	"sort"

	"piltlab/internal/app/ports"
	"piltlab/internal/domain/trial"
)

type UseCase struct {
	Store ports.AssetStore
}

// File returns the asset bytes and a content type guessed from the extension.
func (u UseCase) File(ctx context.Context, p string) ([]byte, string, error) {
	b, err := u.Store.File(ctx, p)
	if err != nil {
		return nil, "", err
	}
	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return b, ct, nil
}

// Missing lists the assets spec references that the store cannot serve.
func (u UseCase) Missing(ctx context.Context, spec trial.Spec) ([]string, error) {
	var missing []string
	for _, ref := range References(spec) {
		_, err := u.Store.File(ctx, ref)
		if errors.Is(err, ports.ErrNotFound) {
			missing = append(missing, ref)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// References returns every asset path spec can put on screen, deduplicated.
func References(spec trial.Spec) []string {
	seen := map[string]struct{}{}
	add := func(ref string) {
		if ref != "" {
			seen[ref] = struct{}{}
		}
	}
	add(spec.StimulusLeft)
	add(spec.StimulusRight)
	for _, v := range []float64{spec.FeedbackLeft, spec.FeedbackRight} {
		if ref, ok := spec.CoinImages.Lookup(v); ok {
			add(ref)
		}
		if ref, ok := spec.PavlovianImages.Lookup(v); ok {
			add(ref)
		}
	}
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
