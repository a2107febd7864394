package backend

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// Endpoint describes one selectable backend.
type Endpoint struct {
	ID          model.BackendID
	URL         string
	Description string
	// Generative backends receive generation parameters with each request.
	Generative bool
}

const inferenceBase = "https://api-inference.huggingface.co/models/"

var builtinEndpoints = []Endpoint{
	{
		ID:          model.BackendCamembert,
		URL:         inferenceBase + "camembert/camembert-base",
		Description: "CamemBERT: French BERT model (most reliable)",
	},
	{
		ID:          model.BackendFlaubert,
		URL:         inferenceBase + "flaubert/flaubert_base_cased",
		Description: "FlauBERT: French alternative for general NLP tasks",
	},
	{
		ID:          model.BackendOpus,
		URL:         inferenceBase + "Helsinki-NLP/opus-mt-fr-fr",
		Description: "OPUS-MT: French to French rewriting",
		Generative:  true,
	},
	{
		ID:          model.BackendBarthez,
		URL:         inferenceBase + "moussaKam/barthez",
		Description: "BARThez: French BART text generation",
		Generative:  true,
	},
	{
		ID:          model.BackendGPT2French,
		URL:         inferenceBase + "gilf/french-gpt-2",
		Description: "GPT-2 French: generative correction",
		Generative:  true,
	},
}

// Table maps backend IDs to endpoints.
type Table struct {
	byID map[model.BackendID]Endpoint
}

// DefaultTable returns the built-in endpoint table.
func DefaultTable() Table {
	t := Table{byID: make(map[model.BackendID]Endpoint, len(builtinEndpoints))}
	for _, ep := range builtinEndpoints {
		t.byID[ep.ID] = ep
	}
	return t
}

// NewTable returns the built-in table with URL overrides applied. Overrides
// for unknown IDs add a new non-generative backend.
func NewTable(overrides map[string]string) (Table, error) {
	t := DefaultTable()
	for id, raw := range overrides {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Table{}, fmt.Errorf("invalid endpoint URL for backend %q: %q", id, raw)
		}
		ep, ok := t.byID[model.BackendID(id)]
		if !ok {
			ep = Endpoint{ID: model.BackendID(id), Description: "Custom endpoint"}
		}
		ep.URL = raw
		t.byID[ep.ID] = ep
	}
	return t, nil
}

// Resolve returns the endpoint for id, falling back to the default backend.
func (t Table) Resolve(id model.BackendID) Endpoint {
	if t.byID == nil {
		t = DefaultTable()
	}
	if ep, ok := t.byID[id]; ok {
		return ep
	}
	return t.byID[model.DefaultBackend]
}

// Endpoints returns every endpoint, built-ins first in their fixed order,
// then custom ones sorted by ID.
func (t Table) Endpoints() []Endpoint {
	if t.byID == nil {
		t = DefaultTable()
	}
	out := make([]Endpoint, 0, len(t.byID))
	seen := map[model.BackendID]bool{}
	for _, ep := range builtinEndpoints {
		out = append(out, t.byID[ep.ID])
		seen[ep.ID] = true
	}
	var custom []Endpoint
	for id, ep := range t.byID {
		if !seen[id] {
			custom = append(custom, ep)
		}
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].ID < custom[j].ID })
	return append(out, custom...)
}
