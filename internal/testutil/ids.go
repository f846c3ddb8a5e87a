package testutil

// FixedIDGenerator returns the same id every time.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence and panics
// when it runs out, this generator never runs out. It suits tests that save
// a single new entity, or that only care about the SQL shape.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. If id is empty, Generate
// returns "test-id".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-id"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
