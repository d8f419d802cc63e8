package testutil

// FixedRunIDGenerator returns the same run ID on every call, so a scenario
// replayed against a fresh store snapshots byte-identically. Empty ids
// become "test-run-default".
type FixedRunIDGenerator struct {
	id string
}

func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

func (g *FixedRunIDGenerator) Generate() string { return g.id }
