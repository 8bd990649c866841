package world

import "testing"

// testConfig returns a small, fast-to-materialize configuration sufficient
// to exercise the world's public surface without a full item catalog.
func testConfig(seed string) Config {
	return Config{
		Seed:            seed,
		PatchSize:       8,
		VisionRange:     2,
		ScentDimensions: 2,
		ColorDimensions: 2,
		ItemTypeCount:   0,
		MCMCIterations:  4,
	}
}

func newTestWorld(t *testing.T, seed string) *World {
	t.Helper()
	w, err := New(testConfig(seed))
	if err != nil {
		t.Fatalf("New(%q) failed: %v", seed, err)
	}
	return w
}
