// Package retriever ranks corpus chunks against a query by lexical overlap.
//
// Every call scans every chunk (O(N·M)); no index is kept between calls.
// That is fine for a single product's documentation set of a few thousand
// chunks and is the ceiling beyond which an index would be needed.
package retriever

import (
	"sort"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// Retriever scores chunks with Jaccard similarity over lower-cased
// whitespace token sets.
type Retriever struct{}

// New creates a Retriever.
func New() *Retriever {
	return &Retriever{}
}

// Retrieve returns at most topK chunks with a positive score, best first.
// Equal scores keep corpus order (documents in load order, chunks in
// sequence order).
func (r *Retriever) Retrieve(query string, corpus []entities.Document, topK int) []entities.ScoredChunk {
	if topK <= 0 {
		return nil
	}
	qset := tokenSet(query)
	if len(qset) == 0 {
		return nil
	}

	var results []entities.ScoredChunk
	for _, doc := range corpus {
		for _, chunk := range doc.Chunks {
			score := jaccard(qset, tokenSet(chunk.Text))
			if score <= 0 {
				continue
			}
			scored, err := entities.NewScoredChunk(chunk, score)
			if err != nil {
				continue
			}
			results = append(results, scored)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Similarity is the Jaccard similarity of the token sets of query and text.
// It is 0 when the query has no tokens.
func Similarity(query, text string) float64 {
	return jaccard(tokenSet(query), tokenSet(text))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
