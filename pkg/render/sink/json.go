package sink

import (
	"encoding/json"

	"github.com/matzehuels/trialviz/pkg/render/reconcile"
)

type jsonOutput struct {
	Kind string `json:"kind"`
	*reconcile.Export
}

// RenderJSON encodes the export as indented JSON. Edge paths are included as
// SVG path data.
func RenderJSON(x *reconcile.Export) ([]byte, error) {
	return json.MarshalIndent(jsonOutput{Kind: "trialviz/export", Export: x}, "", "  ")
}
