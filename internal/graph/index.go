package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// IndexVersion is written into every index this package produces.
	IndexVersion = "2.0.0"
	// IndexSchema identifies the knowledge-graph interchange document.
	IndexSchema = "knowledge-graph"

	generatedAtLayout = "2006-01-02"
)

// ErrUnsupportedIndex indicates the document declares a schema we do not read.
var ErrUnsupportedIndex = errors.New("graph: unsupported index schema")

// Index is the serialized interchange form of a Graph (graph-index.json).
type Index struct {
	Version        string              `json:"version"`
	GeneratedAt    string              `json:"generated_at"`
	Schema         string              `json:"schema,omitempty"`
	Nodes          map[string]Node     `json:"nodes"`
	MOCs           map[string]MOC      `json:"mocs"`
	ConflictMatrix map[string][]string `json:"conflict_matrix"`
}

// NewIndex snapshots g into an interchange document stamped with now.
func NewIndex(g *Graph, now time.Time) Index {
	idx := Index{
		Version:        IndexVersion,
		GeneratedAt:    now.UTC().Format(generatedAtLayout),
		Schema:         IndexSchema,
		Nodes:          make(map[string]Node, g.Len()),
		MOCs:           make(map[string]MOC),
		ConflictMatrix: g.ConflictMatrix(),
	}
	for _, node := range g.Nodes() {
		idx.Nodes[node.Name] = node
	}
	for _, moc := range g.MOCs() {
		idx.MOCs[moc.Name] = moc
	}
	return idx
}

// Graph rebuilds the in-memory graph from the document. Map keys are
// authoritative for names; the conflict matrix is ignored because it is
// always recomputable from the nodes.
func (idx Index) Graph() *Graph {
	nodes := make([]Node, 0, len(idx.Nodes))
	for name, node := range idx.Nodes {
		node.Name = name
		nodes = append(nodes, node)
	}
	mocs := make([]MOC, 0, len(idx.MOCs))
	for name, moc := range idx.MOCs {
		moc.Name = name
		mocs = append(mocs, moc)
	}
	return New(nodes, mocs)
}

// Encode writes the index as indented JSON.
func (idx Index) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx); err != nil {
		return fmt.Errorf("graph: encode index: %w", err)
	}
	return nil
}

// DecodeIndex reads an interchange document. Missing node fields are
// defaulted when the graph is built, not here.
func DecodeIndex(r io.Reader) (Index, error) {
	var idx Index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return Index{}, fmt.Errorf("graph: decode index: %w", err)
	}
	if schema := strings.TrimSpace(idx.Schema); schema != "" && schema != IndexSchema {
		return Index{}, fmt.Errorf("%w: %q", ErrUnsupportedIndex, schema)
	}
	if idx.Nodes == nil {
		idx.Nodes = map[string]Node{}
	}
	if idx.MOCs == nil {
		idx.MOCs = map[string]MOC{}
	}
	return idx, nil
}
