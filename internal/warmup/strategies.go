package warmup

// DefaultStrategies returns the built-in percentage tables. Config may
// replace or extend them; the engine only requires that at least one
// strategy exists and that each table validates.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "conservative", Percents: []float64{0.4, 0.55, 0.7, 0.85}},
		{Name: "standard", Percents: []float64{0.5, 0.65, 0.8}},
		{Name: "minimal", Percents: []float64{0.5, 0.75}},
	}
}

// StrategyIndex builds a lookup map keyed by strategy name.
func StrategyIndex(strategies []Strategy) map[string]Strategy {
	idx := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		idx[s.Name] = s
	}
	return idx
}
