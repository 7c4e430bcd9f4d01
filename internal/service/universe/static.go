package universe

import (
	"context"
	"fmt"
	"sort"

	"HeatDash/internal/domain/models"
	drepo "HeatDash/internal/domain/repository"
	"HeatDash/pkg/util"
)

var _ drepo.UniverseResolver = (*Static)(nil)

// Static serves the baskets defined in configuration.
type Static struct {
	baskets map[string][]string
	names   []string
}

func NewStatic(baskets map[string][]string) *Static {
	s := &Static{baskets: make(map[string][]string, len(baskets))}
	for name, syms := range baskets {
		s.baskets[name] = util.NormalizeSymbols(syms)
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Resolve returns a copy of the basket in configured order.
func (s *Static) Resolve(_ context.Context, name string) ([]string, error) {
	syms, ok := s.baskets[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, models.ErrUnknownUniverse)
	}
	return append([]string(nil), syms...), nil
}

func (s *Static) Names() []string { return append([]string(nil), s.names...) }
