package arbitrage

import "github.com/alanyoungcy/triarb/internal/domain"

// EnumerateCycles walks A→B→C for every coin A, neighbor B of A and neighbor
// C of B, and emits (A→B, B→C, C→A) whenever A is a neighbor of C.
//
// Triangles are not canonicalised: the same three coins appear once per
// rotation and once per mirror, and callers must tolerate that.
func EnumerateCycles(g *Graph) []domain.Scheme {
	var out []domain.Scheme
	for _, a := range g.order {
		for _, b := range g.adj[a] {
			for _, c := range g.adj[b] {
				if !contains(g.adj[c], a) {
					continue
				}
				out = append(out, domain.Scheme{
					{Base: a, Quote: b},
					{Base: b, Quote: c},
					{Base: c, Quote: a},
				})
			}
		}
	}
	return out
}
