package search

import (
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func vecHits(pairs ...any) []models.RetrievalResult {
	out := make([]models.RetrievalResult, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.RetrievalResult{
			ChunkID: pairs[i].(string),
			Score:   pairs[i+1].(float64),
			Origin:  models.OriginVector,
		})
	}
	return out
}

func kwHits(pairs ...any) []models.RetrievalResult {
	out := vecHits(pairs...)
	for i := range out {
		out[i].Origin = models.OriginKeyword
	}
	return out
}

func TestNormalizeMinMax(t *testing.T) {
	hits := vecHits("a", 0.9, "b", 0.5, "c", 0.1)
	norm := normalize(hits)
	if got := norm["a"]; got != 1.0 {
		t.Errorf("max score normalized to %v, want 1.0", got)
	}
	if got := norm["c"]; got != 0.0 {
		t.Errorf("min score normalized to %v, want 0.0", got)
	}
	if got := norm["b"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("mid score normalized to %v, want 0.5", got)
	}
}

func TestNormalizeAllEqual(t *testing.T) {
	norm := normalize(vecHits("a", 0.42, "b", 0.42))
	for id, s := range norm {
		if s != 1.0 {
			t.Errorf("chunk %s: got %v, want 1.0 for an all-equal list", id, s)
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if norm := normalize(nil); len(norm) != 0 {
		t.Errorf("got %d entries for empty input", len(norm))
	}
}

func TestFuseOverlapOutranksSingleSignal(t *testing.T) {
	// "both" appears mid-list in both signals; "vonly" and "konly" top their
	// single list. With equal weights the doubly-attested chunk wins.
	vector := vecHits("vonly", 0.9, "both", 0.8, "v2", 0.1)
	keyword := kwHits("konly", 12.0, "both", 10.0, "k2", 1.0)

	fused := Fuse(vector, keyword, nil, DefaultWeights(), 10)
	if len(fused) != 5 {
		t.Fatalf("got %d fused results, want 5", len(fused))
	}
	if fused[0].ChunkID != "both" {
		t.Errorf("top result = %s, want both", fused[0].ChunkID)
	}
}

func TestFuseSingleListPreservesOrder(t *testing.T) {
	vector := vecHits("a", 0.9, "b", 0.7, "c", 0.2)
	fused := Fuse(vector, nil, nil, DefaultWeights(), 10)
	got := make([]string, len(fused))
	for i, f := range fused {
		got[i] = f.ChunkID
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFuseTieBreakDeterministic(t *testing.T) {
	// Two chunks with identical fused and vector scores break the tie by ID.
	vector := vecHits("doc1_0003", 0.5, "doc1_0001", 0.5)
	for i := 0; i < 10; i++ {
		fused := Fuse(vector, nil, nil, DefaultWeights(), 10)
		if fused[0].ChunkID != "doc1_0001" {
			t.Fatalf("run %d: top = %s, want doc1_0001", i, fused[0].ChunkID)
		}
	}
}

func TestFuseTruncatesToTopK(t *testing.T) {
	vector := vecHits("a", 0.9, "b", 0.8, "c", 0.7, "d", 0.6)
	fused := Fuse(vector, nil, nil, DefaultWeights(), 2)
	if len(fused) != 2 {
		t.Fatalf("got %d results, want 2", len(fused))
	}
	if fused[0].ChunkID != "a" || fused[1].ChunkID != "b" {
		t.Errorf("top 2 = %s, %s", fused[0].ChunkID, fused[1].ChunkID)
	}
}

func TestFuseWeightsShiftRanking(t *testing.T) {
	vector := vecHits("v", 0.9, "shared", 0.5)
	keyword := kwHits("k", 9.0, "shared", 5.0)

	vecHeavy := Fuse(vector, keyword, nil, Weights{Vector: 1.0, Keyword: 0.0}, 10)
	if vecHeavy[0].ChunkID != "v" {
		t.Errorf("vector-only weights: top = %s, want v", vecHeavy[0].ChunkID)
	}
	kwHeavy := Fuse(vector, keyword, nil, Weights{Vector: 0.0, Keyword: 1.0}, 10)
	if kwHeavy[0].ChunkID != "k" {
		t.Errorf("keyword-only weights: top = %s, want k", kwHeavy[0].ChunkID)
	}
}

func TestFuseRecordsPerSignalScores(t *testing.T) {
	vector := vecHits("a", 0.9, "b", 0.1)
	keyword := kwHits("a", 4.0, "b", 2.0)
	web := []models.RetrievalResult{
		{ChunkID: "web_0000", Score: 2, Origin: models.OriginWeb},
		{ChunkID: "web_0001", Score: 1, Origin: models.OriginWeb},
	}

	fused := Fuse(vector, keyword, web, DefaultWeights(), 10)
	byID := map[string]Fused{}
	for _, f := range fused {
		byID[f.ChunkID] = f
	}
	a := byID["a"]
	if a.VectorScore != 1.0 || a.KeywordScore != 1.0 || a.WebScore != 0 {
		t.Errorf("a per-signal scores = %v/%v/%v", a.VectorScore, a.KeywordScore, a.WebScore)
	}
	w := byID["web_0000"]
	if w.WebScore != 1.0 || w.VectorScore != 0 || w.KeywordScore != 0 {
		t.Errorf("web_0000 per-signal scores = %v/%v/%v", w.VectorScore, w.KeywordScore, w.WebScore)
	}
}
