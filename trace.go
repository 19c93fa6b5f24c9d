package productinfo

import (
	"encoding/json"
)

// Layer names the resolution step that produced a trace entry.
type Layer string

const (
	LayerVariant  Layer = "variant"
	LayerAncestor Layer = "ancestor"
	LayerMaster   Layer = "master"
	LayerCycle    Layer = "cycle"
)

// Trace captures provenance for one property lookup across the layers that
// were consulted, in order.
type Trace struct {
	Alias string       `json:"alias"`
	Mode  Mode         `json:"mode"`
	Steps []Provenance `json:"steps"`
}

// Provenance details how a single step contributed to a traced lookup.
type Provenance struct {
	Layer  Layer  `json:"layer"`
	NodeID int64  `json:"node_id,omitempty"`
	Alias  string `json:"alias"`
	Value  string `json:"value,omitempty"`
	Status Status `json:"status"`
}

// Result returns the outcome of the final step, or not found for an empty
// trace.
func (t Trace) Result() Result {
	for i := len(t.Steps) - 1; i >= 0; i-- {
		step := t.Steps[i]
		if step.Status == StatusFound && step.Alias == t.Alias {
			return found(step.Value, step.NodeID)
		}
	}
	return Result{}
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

type tracer struct {
	trace *Trace
}

func (t tracer) record(layer Layer, alias string, nodeID int64, res Result) {
	if t.trace == nil {
		return
	}
	t.trace.Steps = append(t.trace.Steps, Provenance{
		Layer:  layer,
		NodeID: nodeID,
		Alias:  alias,
		Value:  res.Value,
		Status: res.Status,
	})
}
