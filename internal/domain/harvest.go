package domain

import (
	"strings"
	"time"
)

// AnnotationMarker is the prefix upstream capability documents use to
// flag auxiliary/annotation fields. It is stripped before storage; the
// flag survives as MetaValue.Annotation.
const AnnotationMarker = "*"

// MetaValue is one extracted metadata field: a scalar or an ordered
// list of strings.
type MetaValue struct {
	Values []string `json:"values"`
	// List is true when the upstream value was a list, even a
	// single-element one. Scalars carry exactly one entry in Values.
	List bool `json:"list,omitempty"`
	// Annotation marks auxiliary fields used only for display
	// ordering (marker-prefixed in the upstream document).
	Annotation bool `json:"annotation,omitempty"`
}

// Scalar builds a single-value MetaValue.
func Scalar(v string) MetaValue {
	return MetaValue{Values: []string{v}}
}

// ListValue builds an ordered-list MetaValue.
func ListValue(vs ...string) MetaValue {
	return MetaValue{Values: vs, List: true}
}

// CheckerResult is the flat field map produced by one checker, with
// the field insertion order preserved for display.
type CheckerResult struct {
	Fields map[string]MetaValue `json:"fields"`
	Order  []string             `json:"order"`
}

// NewCheckerResult returns an empty checker result ready for Set calls.
func NewCheckerResult() *CheckerResult {
	return &CheckerResult{Fields: make(map[string]MetaValue)}
}

// Set stores a field under key. A leading annotation marker is
// stripped and recorded as the Annotation flag instead. Re-setting an
// existing key overwrites the value but keeps its display position.
func (c *CheckerResult) Set(key string, v MetaValue) {
	if stripped, ok := strings.CutPrefix(key, AnnotationMarker); ok {
		key = stripped
		v.Annotation = true
	}
	if _, exists := c.Fields[key]; !exists {
		c.Order = append(c.Order, key)
	}
	c.Fields[key] = v
}

// Metamap is the per-service structured metadata: checker name to the
// fields that checker extracted. It is produced fresh on every
// successful harvest and fully replaces the previous one.
type Metamap map[string]CheckerResult

// Dataset is one dataset exposed by a service. A service owns its
// datasets; they are reconciled on every successful harvest and
// removed with the service.
type Dataset struct {
	// UID is the human-readable dataset identifier, unique within a
	// service.
	UID string `json:"uid"`
	// Group clusters datasets for display (e.g. a collection or
	// network identifier).
	Group string `json:"group,omitempty"`
}

// DedupeDatasets drops datasets with empty uids and collapses
// duplicate uids within one harvest to the first occurrence.
func DedupeDatasets(in []Dataset) []Dataset {
	out := make([]Dataset, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, d := range in {
		if d.UID == "" || seen[d.UID] {
			continue
		}
		seen[d.UID] = true
		out = append(out, d)
	}
	return out
}

// HarvestResult records the outcome of one harvest attempt. The store
// keeps the most recent one per service plus a bounded message log.
type HarvestResult struct {
	ServiceID string    `json:"service_id"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	// Status is a short human-readable outcome ("harvested 12
	// datasets", "timeout").
	Status string `json:"status"`
	// Message carries diagnostic detail shown verbatim to operators,
	// truncated to MaxMessageLen.
	Message string `json:"message,omitempty"`
}

// LogEntry converts the result into its message-log record.
func (r HarvestResult) LogEntry() HarvestMessage {
	msg := r.Message
	if msg == "" {
		msg = r.Status
	}
	return HarvestMessage{Timestamp: r.Timestamp, Message: msg}
}

// HarvestMessage is one timestamped entry of the bounded per-service
// harvest message history.
type HarvestMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
