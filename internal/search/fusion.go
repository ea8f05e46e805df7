// Package search runs mode-dispatched retrieval and hybrid score fusion.
package search

import (
	"sort"

	"github.com/hyperjump/kotae/internal/models"
)

// Weights are the per-signal multipliers applied to normalized scores.
type Weights struct {
	Vector  float64
	Keyword float64
	Web     float64
}

// DefaultWeights weight every signal equally.
func DefaultWeights() Weights {
	return Weights{Vector: 0.5, Keyword: 0.5, Web: 0.5}
}

// Fused is one chunk's combined score with its per-signal normalized parts.
type Fused struct {
	ChunkID      string
	Score        float64
	VectorScore  float64
	KeywordScore float64
	WebScore     float64
}

// normalize rescales a result list's scores to [0,1] by min-max. A list whose
// scores are all equal normalizes to 1.0 (every member is the list's best).
func normalize(results []models.RetrievalResult) map[string]float64 {
	if len(results) == 0 {
		return nil
	}
	min, max := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	out := make(map[string]float64, len(results))
	for _, r := range results {
		if max == min {
			out[r.ChunkID] = 1.0
		} else {
			out[r.ChunkID] = (r.Score - min) / (max - min)
		}
	}
	return out
}

// Fuse merges independently retrieved result lists into one ranked list.
// Each list is min-max normalized on its own, weighted, and summed per chunk,
// so a chunk ranked by several signals is rewarded for the agreement. The
// output is sorted by fused score descending with ties broken by vector score
// then chunk ID, truncated to topK. Deterministic for identical inputs.
func Fuse(vectorList, keywordList, webList []models.RetrievalResult, w Weights, topK int) []Fused {
	vecScores := normalize(vectorList)
	kwScores := normalize(keywordList)
	webScores := normalize(webList)

	byID := make(map[string]*Fused)
	add := func(scores map[string]float64, weight float64, set func(*Fused, float64)) {
		for id, s := range scores {
			f, ok := byID[id]
			if !ok {
				f = &Fused{ChunkID: id}
				byID[id] = f
			}
			set(f, s)
			f.Score += weight * s
		}
	}
	add(vecScores, w.Vector, func(f *Fused, s float64) { f.VectorScore = s })
	add(kwScores, w.Keyword, func(f *Fused, s float64) { f.KeywordScore = s })
	add(webScores, w.Web, func(f *Fused, s float64) { f.WebScore = s })

	out := make([]Fused, 0, len(byID))
	for _, f := range byID {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
