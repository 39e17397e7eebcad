// Package blocklist defines core types shared across subsystems.
package blocklist

import "time"

// Rule is one moderation directive reported by a node: the node at
// SourceNode blocks or limits interaction with BlockedDomain.
type Rule struct {
	// SourceNode is the domain of the node that published the rule.
	SourceNode string `json:"source_node"`
	// BlockedDomain is the target of the block. Nodes occasionally omit it
	// (some instances redact the domain for severe blocks); the entry is
	// still mapped through so downstream analysis can count redactions.
	BlockedDomain string `json:"blocked_domain"`
	// Severity is the node's own vocabulary ("suspend", "silence", ...),
	// passed through verbatim.
	Severity string `json:"severity,omitempty"`
	// Comment is optional free text explaining the block.
	Comment string `json:"comment,omitempty"`
	// ObservedAt is the crawl's wall-clock date, not any node timestamp.
	ObservedAt time.Time `json:"observed_at"`
}

// SkipReason classifies why a probe yielded no records. Skips are expected
// outcomes of crawling an open population, never run-level errors.
type SkipReason string

// Supported skip reasons.
const (
	SkipNone        SkipReason = ""
	SkipContentType SkipReason = "content-type"
	SkipStatus      SkipReason = "status"
	SkipTimeout     SkipReason = "timeout"
	SkipTransport   SkipReason = "transport"
	SkipParse       SkipReason = "parse"
)

// Outcome is the result of probing a single node. Skip == SkipNone means the
// probe succeeded, possibly with zero rules.
type Outcome struct {
	Node  string
	Rules []Rule
	Skip  SkipReason
}

// Success reports whether the probe returned data.
func (o Outcome) Success() bool {
	return o.Skip == SkipNone
}
