// Package scheme persists enumerated triangular schemes. Every backend stores
// the same JSON document: an array of three-element arrays of
// {"BaseCoin":{"Name":..},"QuoteCoin":{"Name":..}} objects.
package scheme

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/triarb/internal/domain"
)

// Encode renders schemes as the persisted JSON document. A nil slice encodes
// as an empty array.
func Encode(schemes []domain.Scheme) ([]byte, error) {
	if schemes == nil {
		schemes = []domain.Scheme{}
	}
	data, err := json.Marshal(schemes)
	if err != nil {
		return nil, fmt.Errorf("scheme: encode: %w", err)
	}
	return data, nil
}

// Decode parses a persisted document. Entries that are not exactly three
// named pairs closing a loop fail with domain.ErrInvalidScheme.
func Decode(data []byte) ([]domain.Scheme, error) {
	var raw [][]domain.Pair
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scheme: decode: %w: %v", domain.ErrInvalidScheme, err)
	}

	out := make([]domain.Scheme, 0, len(raw))
	for i, legs := range raw {
		if len(legs) != 3 {
			return nil, fmt.Errorf("scheme: entry %d has %d legs: %w", i, len(legs), domain.ErrInvalidScheme)
		}
		var s domain.Scheme
		for j, p := range legs {
			if p.Base.IsZero() || p.Quote.IsZero() {
				return nil, fmt.Errorf("scheme: entry %d leg %d has an empty coin: %w", i, j, domain.ErrInvalidScheme)
			}
			s[j] = domain.Pair{Base: domain.NewCoin(p.Base.Name), Quote: domain.NewCoin(p.Quote.Name)}
		}
		if !s.Closed() {
			return nil, fmt.Errorf("scheme: entry %d (%s) does not close: %w", i, s.Key(), domain.ErrInvalidScheme)
		}
		out = append(out, s)
	}
	return out, nil
}
