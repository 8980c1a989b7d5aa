package model

import "encoding/json"

// ToJSON serializes the hierarchy losslessly, including nested children.
func (h *RequirementHierarchy) ToJSON() ([]byte, error) {
	return json.Marshal(h)
}

// HierarchyFromJSON deserializes a hierarchy produced by ToJSON. Round-trip
// is lossless: HierarchyFromJSON(h.ToJSON()).Equal(h) for every reachable
// hierarchy (spec.md §8, "Serialization round-trip").
func HierarchyFromJSON(data []byte) (*RequirementHierarchy, error) {
	var h RequirementHierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	if h.Metadata == nil {
		h.Metadata = map[string]interface{}{}
	}
	return &h, nil
}

// Record is a flat, tolerant representation of a RequirementNode used when
// round-tripping through a checkpoint. Unlike ToJSON/HierarchyFromJSON, FromRecord
// tolerates missing optional fields so older checkpoints (written before a
// field existed) still load — forward/backward compatibility per
// spec.md §4.1.
type Record struct {
	ID                 string                 `json:"id"`
	Description        string                 `json:"description"`
	Type               string                 `json:"type,omitempty"`
	Category           string                 `json:"category,omitempty"`
	ParentID           string                 `json:"parent_id,omitempty"`
	Children           []Record               `json:"children,omitempty"`
	AcceptanceCriteria []string               `json:"acceptance_criteria,omitempty"`
	RelatedConcepts    []string               `json:"related_concepts,omitempty"`
	Implementation     map[string]interface{} `json:"implementation,omitempty"`
	DesignContracts    map[string]interface{} `json:"design_contracts,omitempty"`
}

// ToRecord flattens a node (and its children) into the tolerant Record form.
func (n *RequirementNode) ToRecord() Record {
	r := Record{
		ID:                 n.ID,
		Description:        n.Description,
		Type:               string(n.Type),
		Category:           string(n.Category),
		ParentID:           n.ParentID,
		AcceptanceCriteria: n.AcceptanceCriteria,
		RelatedConcepts:    n.RelatedConcepts,
	}
	for _, c := range n.Children {
		r.Children = append(r.Children, c.ToRecord())
	}
	if n.Implementation != nil {
		r.Implementation = map[string]interface{}{
			"frontend":   n.Implementation.Frontend,
			"backend":    n.Implementation.Backend,
			"middleware": n.Implementation.Middleware,
			"shared":     n.Implementation.Shared,
		}
	}
	if n.DesignContracts != nil {
		r.DesignContracts = map[string]interface{}{
			"preconditions":  n.DesignContracts.Preconditions,
			"postconditions": n.DesignContracts.Postconditions,
			"invariants":     n.DesignContracts.Invariants,
		}
	}
	return r
}

// FromRecord reconstructs a RequirementNode from its tolerant Record form.
// Missing Type defaults to "implementation" (the most conservative leaf
// assumption); missing Category defaults to "functional".
func FromRecord(r Record) *RequirementNode {
	typ := RequirementType(r.Type)
	if !typ.valid() {
		typ = TypeImplementation
	}
	cat := Category(r.Category)
	if !cat.valid() {
		cat = CategoryFunctional
	}
	n := &RequirementNode{
		ID:                 r.ID,
		Description:        r.Description,
		Type:               typ,
		Category:           cat,
		ParentID:           r.ParentID,
		AcceptanceCriteria: r.AcceptanceCriteria,
		RelatedConcepts:    r.RelatedConcepts,
	}
	for _, c := range r.Children {
		n.Children = append(n.Children, FromRecord(c))
	}
	if r.Implementation != nil {
		n.Implementation = &ImplementationComponents{
			Frontend:   toStringSlice(r.Implementation["frontend"]),
			Backend:    toStringSlice(r.Implementation["backend"]),
			Middleware: toStringSlice(r.Implementation["middleware"]),
			Shared:     toStringSlice(r.Implementation["shared"]),
		}
	}
	if r.DesignContracts != nil {
		n.DesignContracts = &DesignContracts{
			Preconditions:  toStringSlice(r.DesignContracts["preconditions"]),
			Postconditions: toStringSlice(r.DesignContracts["postconditions"]),
			Invariants:     toStringSlice(r.DesignContracts["invariants"]),
		}
	}
	return n
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
