// Package arbitrage detects triangular arbitrage cycles: it builds a coin
// graph from tickers, enumerates closed three-coin cycles, resolves them
// against a ticker snapshot, and simulates the conversions under the fee
// policy of the snapshot's exchange cohort.
package arbitrage

import "github.com/alanyoungcy/triarb/internal/domain"

// Graph is an undirected graph of coins whose edges are tradable pairs.
// Nodes and adjacency lists keep insertion order so enumeration over the same
// input is deterministic.
type Graph struct {
	order []domain.Coin
	adj   map[domain.Coin][]domain.Coin
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[domain.Coin][]domain.Coin)}
}

// BuildGraph adds one edge per ticker's (base, quote).
func BuildGraph(tickers []domain.Ticker) *Graph {
	g := NewGraph()
	for _, t := range tickers {
		g.AddEdge(t.Base, t.Quote)
	}
	return g
}

// AddEdge inserts both coins when absent and links them in both directions.
// Adding an existing edge in either orientation is a no-op. A coin paired
// with itself becomes a node without an edge.
func (g *Graph) AddEdge(base, quote domain.Coin) {
	g.addNode(base)
	g.addNode(quote)
	if base == quote || g.HasEdge(base, quote) {
		return
	}
	g.adj[base] = append(g.adj[base], quote)
	g.adj[quote] = append(g.adj[quote], base)
}

func (g *Graph) addNode(c domain.Coin) {
	if _, ok := g.adj[c]; ok {
		return
	}
	g.adj[c] = nil
	g.order = append(g.order, c)
}

// HasEdge reports whether a and b are directly tradable.
func (g *Graph) HasEdge(a, b domain.Coin) bool {
	return contains(g.adj[a], b) || contains(g.adj[b], a)
}

// Neighbors returns the coins directly tradable with c, or nil for an unknown
// coin. The returned slice must not be modified.
func (g *Graph) Neighbors(c domain.Coin) []domain.Coin {
	return g.adj[c]
}

// AllCoins returns every node in insertion order.
func (g *Graph) AllCoins() []domain.Coin {
	out := make([]domain.Coin, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

func contains(list []domain.Coin, c domain.Coin) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
