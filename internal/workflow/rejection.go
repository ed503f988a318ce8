package workflow

import "strings"

// RejectionKind classifies why a proposed mutation was refused.
type RejectionKind string

const (
	// RejectStructural covers graph-shape violations: cycle-creating edges,
	// duplicate singleton nodes, dangling edge endpoints.
	RejectStructural RejectionKind = "structural"
	// RejectSchema covers missing or invalid required config fields.
	RejectSchema RejectionKind = "schema"
)

// Rejection is returned by validators and graph operations when a proposed
// mutation would violate an invariant. The mutation is discarded in full;
// the previous definition is always left unchanged.
type Rejection struct {
	Kind    RejectionKind `json:"kind"`
	Message string        `json:"message"`
	// Fields holds the field-level messages for schema rejections, returned
	// verbatim to the caller for display.
	Fields []string `json:"fields,omitempty"`
	// Cycle holds the full offending node-id path for cycle rejections.
	Cycle []string `json:"cycle,omitempty"`
}

func (r *Rejection) Error() string {
	if len(r.Fields) > 0 {
		return r.Message + ": " + strings.Join(r.Fields, "; ")
	}
	return r.Message
}

// StructuralRejection builds a structural rejection with a plain message.
func StructuralRejection(msg string) *Rejection {
	return &Rejection{Kind: RejectStructural, Message: msg}
}

// CycleRejection builds a structural rejection carrying the offending path.
func CycleRejection(msg string, cycle []string) *Rejection {
	return &Rejection{Kind: RejectStructural, Message: msg, Cycle: cycle}
}

// SchemaRejection builds a schema rejection from field-level messages.
func SchemaRejection(msg string, fields []string) *Rejection {
	return &Rejection{Kind: RejectSchema, Message: msg, Fields: fields}
}
