package arbitrage

import (
	"reflect"
	"testing"
)

func TestEnumerateCycles(t *testing.T) {
	g := BuildGraph(poloniexTriangle(t))
	schemes := EnumerateCycles(g)

	// One scheme per starting coin and per direction around the triangle.
	if len(schemes) != 6 {
		t.Fatalf("len(schemes) = %d, want 6", len(schemes))
	}
	keys := make(map[string]int)
	for _, s := range schemes {
		if !s.Closed() {
			t.Errorf("scheme %s is not closed", s.Key())
		}
		keys[s.Key()]++
	}
	if len(keys) != 6 {
		t.Errorf("distinct keys = %d, want 6: %v", len(keys), keys)
	}

	first := schemes[0]
	if first[0] != pair("BTC", "USDT") || first[1] != pair("USDT", "ETH") || first[2] != pair("ETH", "BTC") {
		t.Errorf("first scheme = %s, want BTC>USDT>ETH", first.Key())
	}
}

func TestEnumerateCyclesNoTriangle(t *testing.T) {
	g := NewGraph()
	g.AddEdge(coin("A"), coin("B"))
	g.AddEdge(coin("B"), coin("C"))
	g.AddEdge(coin("C"), coin("D"))
	g.AddEdge(coin("X"), coin("X"))

	if got := EnumerateCycles(g); len(got) != 0 {
		t.Fatalf("EnumerateCycles = %v, want none", got)
	}
	if got := EnumerateCycles(NewGraph()); len(got) != 0 {
		t.Fatalf("EnumerateCycles(empty) = %v, want none", got)
	}
}

func TestEnumerateCyclesDeterministic(t *testing.T) {
	tickers := poloniexTriangle(t)
	a := EnumerateCycles(BuildGraph(tickers))
	b := EnumerateCycles(BuildGraph(tickers))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("enumeration differs between identical inputs")
	}
}
