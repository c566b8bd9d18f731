// Package structure flattens arbitrary player-built infrastructure trees into
// countable resource usage. Input shapes are caller-controlled and often
// partially malformed, so the walk is a total function: it never fails, it
// degrades to whatever it managed to extract.
package structure

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"cloudbudget/core/money"
)

// MaxDepth caps the traversal so a pathologically nested payload cannot
// recurse without bound.
const MaxDepth = 32

// Entry is the usage recorded for one resource type.
type Entry struct {
	// Quantity is the number of discovered resources of this type.
	Quantity int `json:"quantity"`

	// Multiplier scales per-request charges for this type.
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Usage maps a lowercase resource type name to its usage entry.
type Usage map[string]Entry

// Result is the outcome of a normalization walk.
type Result struct {
	// Usage is the flattened resource usage.
	Usage Usage `json:"usage"`

	// Partial is true when malformed nodes were skipped along the way.
	Partial bool `json:"partial,omitempty"`

	// Notes describes what was skipped and why.
	Notes []string `json:"notes,omitempty"`
}

// knownResourceTypes drives the pass-through fast path: a flat map with at
// least one of these keys is treated as already-normalized usage.
var knownResourceTypes = map[string]bool{
	"ec2":         true,
	"rds":         true,
	"s3":          true,
	"lambda":      true,
	"vpc":         true,
	"nat_gateway": true,
	"elastic_ip":  true,
	"dynamo_db":   true,
}

var one = decimal.NewFromInt(1)

// Normalize flattens an arbitrary infrastructure value into Usage.
// It is idempotent: feeding its own output back in yields the same result.
func Normalize(value any) Result {
	switch v := value.(type) {
	case nil:
		return Result{Usage: Usage{}}
	case map[string]any:
		if len(v) == 0 {
			return Result{Usage: Usage{}}
		}
		if isFlatUsage(v) {
			return Result{Usage: passThrough(v)}
		}
		w := newWalker()
		w.walkMap(v, 0)
		if len(w.usage) == 0 {
			// Nothing recognizable was found. Hand the structure back keyed
			// as submitted so unknown keys still flow through aggregation.
			return Result{Usage: passThrough(v), Partial: w.partial(), Notes: w.notes}
		}
		return Result{Usage: w.usage, Partial: w.partial(), Notes: w.notes}
	case []any:
		w := newWalker()
		w.walkList(v, 0)
		return Result{Usage: w.usage, Partial: w.partial(), Notes: w.notes}
	default:
		return Result{
			Usage:   Usage{},
			Partial: true,
			Notes:   []string{"top-level value is not an object or list"},
		}
	}
}

// isFlatUsage reports whether the map looks like already-normalized usage:
// at least one known resource key, and every object value shaped like a
// usage entry. A known key holding a nested structure (a vpc with subnets,
// say) is not flat usage and still goes through discovery.
func isFlatUsage(m map[string]any) bool {
	known := false
	for k, v := range m {
		switch entry := v.(type) {
		case []any:
			return false
		case map[string]any:
			if !looksLikeEntry(entry) {
				return false
			}
		case nil, bool, string, float64, int, int64, json.Number:
		default:
			return false
		}
		if knownResourceTypes[strings.ToLower(k)] {
			known = true
		}
	}
	return known
}

// looksLikeEntry reports whether a map carries only usage-entry fields.
func looksLikeEntry(m map[string]any) bool {
	for k := range m {
		switch k {
		case "quantity", "multiplier":
		default:
			return false
		}
	}
	return true
}

// passThrough converts a flat map into Usage without discovery.
func passThrough(m map[string]any) Usage {
	usage := make(Usage, len(m))
	for k, v := range m {
		key := strings.ToLower(k)
		if entry, ok := v.(map[string]any); ok {
			usage[key] = Entry{
				Quantity:   intOr(entry["quantity"], 1),
				Multiplier: money.ParseOr(entry["multiplier"], one),
			}
			continue
		}
		usage[key] = Entry{Quantity: 1, Multiplier: one}
	}
	return usage
}

type walker struct {
	usage   Usage
	notes   []string
	vpcSeen bool
}

func newWalker() *walker {
	return &walker{usage: Usage{}}
}

func (w *walker) partial() bool {
	return len(w.notes) > 0
}

func (w *walker) note(msg string) {
	w.notes = append(w.notes, msg)
}

func (w *walker) add(resourceType string, n int) {
	if n <= 0 {
		return
	}
	key := strings.ToLower(resourceType)
	entry := w.usage[key]
	entry.Quantity += n
	entry.Multiplier = one
	w.usage[key] = entry
}

func (w *walker) walkAny(v any, depth int) {
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}
	switch node := v.(type) {
	case map[string]any:
		w.walkMap(node, depth)
	case []any:
		w.walkList(node, depth)
	}
}

func (w *walker) walkList(items []any, depth int) {
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}
	for _, item := range items {
		w.walkAny(item, depth+1)
	}
}

func (w *walker) walkMap(m map[string]any, depth int) {
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}

	// A node that names its own type counts as one resource of that type.
	if t := typeOf(m); t != "" {
		w.add(t, 1)
		if _, ok := m["elasticIpId"]; ok {
			w.add("elastic_ip", 1)
		}
		if t == "rds" {
			w.add("rds", countReadReplicas(m))
		}
	}

	for k, v := range m {
		switch k {
		case "type", "elasticIpId":
			// consumed above

		case "vpc":
			// One VPC per structure no matter how the field is shaped.
			if !w.vpcSeen {
				w.vpcSeen = true
				w.add("vpc", 1)
			}
			w.walkAny(v, depth+1)

		case "availabilityZones":
			zones, ok := v.([]any)
			if !ok {
				w.note("availabilityZones is not a list")
				continue
			}
			w.add("availability_zone", len(zones))

		case "subnets", "networks":
			w.countTypedNodes(k, v, depth)

		case "computes":
			w.countComputeNodes(v, depth)

		case "databases":
			w.countDatabaseNodes(v, depth)

		case "regionalResources", "regional_resources":
			items, ok := v.([]any)
			if !ok {
				w.note(k + " is not a list")
				continue
			}
			w.walkList(items, depth+1)

		default:
			w.walkAny(v, depth+1)
		}
	}
}

// countTypedNodes counts list members by their type field. Members without a
// type are ignored, as are non-object members.
func (w *walker) countTypedNodes(container string, v any, depth int) {
	items, ok := v.([]any)
	if !ok {
		w.note(container + " is not a list")
		return
	}
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			w.note(container + " member is not an object")
			continue
		}
		if t := typeOf(node); t != "" {
			w.add(t, 1)
		}
	}
}

func (w *walker) countComputeNodes(v any, depth int) {
	items, ok := v.([]any)
	if !ok {
		w.note("computes is not a list")
		return
	}
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			w.note("computes member is not an object")
			continue
		}
		if t := typeOf(node); t != "" {
			w.add(t, 1)
		}
		// An attached elastic IP bills separately from the instance itself.
		if _, ok := node["elasticIpId"]; ok {
			w.add("elastic_ip", 1)
		}
	}
}

func (w *walker) countDatabaseNodes(v any, depth int) {
	items, ok := v.([]any)
	if !ok {
		w.note("databases is not a list")
		return
	}
	if depth > MaxDepth {
		w.note("structure deeper than traversal limit, subtree skipped")
		return
	}
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			w.note("databases member is not an object")
			continue
		}
		t := typeOf(node)
		if t == "" {
			continue
		}
		w.add(t, 1)
		// Read replicas of an RDS primary bill as additional RDS instances.
		if t == "rds" {
			w.add("rds", countReadReplicas(node))
		}
	}
}

func typeOf(node map[string]any) string {
	t, _ := node["type"].(string)
	return strings.ToLower(strings.TrimSpace(t))
}

// countReadReplicas finds read replicas either directly on the node or under
// a nested replication block.
func countReadReplicas(node map[string]any) int {
	count := listLen(node["readReplicas"]) + listLen(node["read_replicas"])
	if replication, ok := node["replication"].(map[string]any); ok {
		count += listLen(replication["readReplicas"]) + listLen(replication["read_replicas"])
	}
	return count
}

func listLen(v any) int {
	items, ok := v.([]any)
	if !ok {
		return 0
	}
	return len(items)
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	default:
		return def
	}
}

// Map renders the usage as a generic map, the shape handed to storage and to
// clients. Feeding the result back into Normalize is a no-op.
func (u Usage) Map() map[string]any {
	out := make(map[string]any, len(u))
	for k, v := range u {
		out[k] = map[string]any{
			"quantity":   v.Quantity,
			"multiplier": v.Multiplier,
		}
	}
	return out
}
