package recommender

import (
	"maps"
	"math"
	"slices"
	"strings"
	"unicode"
)

const DefaultMaxFeatures = 500

// vector is a sparse, L2-normalized term weight vector.
type vector map[string]float64

// tokenize lowercases text and returns runs of word characters at least two runes long.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// terms returns unigrams followed by bigrams of the tokenized text.
func terms(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	out := make([]string, 0, 2*len(tokens)-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// fitTransform weights docs with smoothed tf-idf over a shared vocabulary
// capped to the maxFeatures most frequent terms.
func fitTransform(docs []string, maxFeatures int) []vector {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	total := make(map[string]int)

	for i, doc := range docs {
		c := make(map[string]int)
		for _, t := range terms(doc) {
			c[t]++
		}
		for t, n := range c {
			df[t]++
			total[t] += n
		}
		counts[i] = c
	}

	vocab := make([]string, 0, len(total))
	for t := range total {
		vocab = append(vocab, t)
	}
	slices.Sort(vocab)
	if maxFeatures > 0 && len(vocab) > maxFeatures {
		slices.SortStableFunc(vocab, func(a, b string) int {
			return total[b] - total[a]
		})
		vocab = vocab[:maxFeatures]
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(vocab))
	for _, t := range vocab {
		idf[t] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	vectors := make([]vector, len(docs))
	for i, c := range counts {
		v := make(vector)
		var norm float64
		// Vocabulary order keeps float sums identical between calls.
		for _, t := range vocab {
			cnt, ok := c[t]
			if !ok {
				continue
			}
			v[t] = float64(cnt) * idf[t]
			norm += v[t] * v[t]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for t := range v {
				v[t] /= norm
			}
		}
		vectors[i] = v
	}

	return vectors
}

// cosine of two normalized vectors.
func cosine(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for _, t := range slices.Sorted(maps.Keys(a)) {
		dot += a[t] * b[t]
	}
	return dot
}
