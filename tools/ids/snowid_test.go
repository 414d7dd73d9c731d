package ids

import "testing"

func TestGenerateUnique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		id := Generate()
		if id <= 0 {
			t.Fatalf("non-positive id %d", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestGenerateStringNotEmpty(t *testing.T) {
	a := GenerateString()
	b := GenerateString()
	if a == "" || a == b {
		t.Fatalf("ids %q and %q", a, b)
	}
}
