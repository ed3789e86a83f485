package cli

import (
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"piltlab/internal/app/simulate"
	"piltlab/internal/domain/trial"
)

type trialEntry struct {
	trial.Spec
	Overrides *simulate.Overrides `json:"overrides,omitempty"`
}

func loadTrials(path string) ([]trial.Spec, []simulate.Overrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "read trials file", goerr.V("path", path))
	}
	var entries []trialEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, goerr.Wrap(err, "decode trials file", goerr.V("path", path))
	}
	if len(entries) == 0 {
		return nil, nil, goerr.New("trials file has no trials", goerr.V("path", path))
	}
	specs := make([]trial.Spec, len(entries))
	overrides := make([]simulate.Overrides, len(entries))
	for i, e := range entries {
		specs[i] = e.Spec
		if e.Overrides != nil {
			overrides[i] = *e.Overrides
		}
	}
	return specs, overrides, nil
}
