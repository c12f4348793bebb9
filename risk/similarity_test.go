package risk

import (
	"math"
	"testing"
)

func TestJaccardSimilarity(t *testing.T) {
	j := JaccardSimilarity{}
	chrome := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"
	chromeUpdate := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/121.0 Safari/537.36"
	curl := "curl/8.4.0"

	if got := j.Similarity(chrome, chrome); got != 1 {
		t.Fatalf("identical signatures: expected 1, got %f", got)
	}
	if got := j.Similarity(chrome, chromeUpdate); got < 0.7 {
		t.Fatalf("minor version bump should stay similar, got %f", got)
	}
	if got := j.Similarity(chrome, curl); got >= 0.7 {
		t.Fatalf("unrelated clients should be dissimilar, got %f", got)
	}
	if got := j.Similarity("", ""); got != 1 {
		t.Fatalf("two empty signatures: expected 1, got %f", got)
	}
	if got := j.Similarity(chrome, ""); got != 0 {
		t.Fatalf("one empty signature: expected 0, got %f", got)
	}
	if got := j.Similarity("A B", "a b"); got != 1 {
		t.Fatalf("case must be ignored, got %f", got)
	}
	if got := j.Similarity("a b c", "a b d"); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestSimilarityFunc(t *testing.T) {
	var s Similarity = SimilarityFunc(func(a, b string) float64 { return 0.42 })
	if s.Similarity("x", "y") != 0.42 {
		t.Fatalf("adapter must call through")
	}
}
