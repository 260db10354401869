package vector

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(Norm(v))-1) > 1e-6 {
		t.Errorf("normalized norm = %v, want 1", Norm(v))
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should normalize to itself, got %v", zero)
	}
}

func TestBuilderUpsertAndQuery(t *testing.T) {
	b := NewBuilder()
	if err := b.Upsert("a.py", []float32{1, 0, 0}, "file a"); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert("b.py", []float32{0, 1, 0}, "file b"); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert("c.py", []float32{0.9, 0.1, 0}, "file c"); err != nil {
		t.Fatal(err)
	}

	set := b.Build()
	if set.Len() != 3 {
		t.Fatalf("Len = %d, want 3", set.Len())
	}

	matches := set.Query([]float32{1, 0, 0}, 2)
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].NodeID != "a.py" {
		t.Errorf("top match = %s, want a.py", matches[0].NodeID)
	}
	if matches[1].NodeID != "c.py" {
		t.Errorf("second match = %s, want c.py", matches[1].NodeID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches should be sorted by score descending")
	}
}

func TestQueryKCappedToSize(t *testing.T) {
	b := NewBuilder()
	_ = b.Upsert("only", []float32{1, 0}, "s")
	set := b.Build()

	matches := set.Query([]float32{1, 0}, 10)
	if len(matches) != 1 {
		t.Errorf("matches = %d, want 1 (k capped)", len(matches))
	}
}

func TestQueryTieBreakByNodeID(t *testing.T) {
	b := NewBuilder()
	// Identical embeddings produce identical scores.
	_ = b.Upsert("zz.py", []float32{1, 1}, "z")
	_ = b.Upsert("aa.py", []float32{1, 1}, "a")
	_ = b.Upsert("mm.py", []float32{1, 1}, "m")
	set := b.Build()

	matches := set.Query([]float32{1, 1}, 3)
	want := []string{"aa.py", "mm.py", "zz.py"}
	for i, id := range want {
		if matches[i].NodeID != id {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].NodeID, id)
		}
	}
}

func TestBuilderRemoveAndRebuild(t *testing.T) {
	b := NewBuilder()
	_ = b.Upsert("a.py", []float32{1, 0}, "a")
	_ = b.Upsert("b.py", []float32{0, 1}, "b")
	first := b.Build()

	b2 := FromSet(first)
	b2.Remove("a.py")
	second := b2.Build()

	if second.Len() != 1 {
		t.Fatalf("Len after remove = %d, want 1", second.Len())
	}
	if _, ok := second.Get("a.py"); ok {
		t.Error("removed record should be gone")
	}
	// The original set is untouched.
	if first.Len() != 2 {
		t.Errorf("original set mutated: Len = %d, want 2", first.Len())
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	b := NewBuilder()
	if err := b.Upsert("a", []float32{1, 0, 0}, "a"); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert("b", []float32{1, 0}, "b"); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := b.Upsert("c", nil, "c"); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(64)

	a1, err := e.Embed(context.Background(), []string{"writes user rows to the database"})
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := e.Embed(context.Background(), []string{"writes user rows to the database"})

	if len(a1[0]) != 64 {
		t.Fatalf("dims = %d, want 64", len(a1[0]))
	}
	for i := range a1[0] {
		if a1[0][i] != a2[0][i] {
			t.Fatal("same text should embed identically")
		}
	}

	sim := CosineSimilarity(a1[0], a2[0])
	if math.Abs(sim-1) > 1e-6 {
		t.Errorf("self similarity = %v, want 1", sim)
	}
}

func TestHashingEmbedderRelatedTextsScoreHigher(t *testing.T) {
	e := NewHashingEmbedder(256)

	vecs, err := e.Embed(context.Background(), []string{
		"function that writes to the database",
		"def save_user writes session commit database",
		"pure math helper adds two numbers",
	})
	if err != nil {
		t.Fatal(err)
	}

	simRelated := CosineSimilarity(vecs[0], vecs[1])
	simUnrelated := CosineSimilarity(vecs[0], vecs[2])
	if simRelated <= simUnrelated {
		t.Errorf("related similarity %v should exceed unrelated %v", simRelated, simUnrelated)
	}
}
