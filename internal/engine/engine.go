// Package engine builds and queries the per-session knowledge engine: a
// passage index over one episode transcript bound to a retrieval-augmented
// completion chain.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/heaversm/podquest/provider"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Passage is one fixed-size slice of the transcript held in the index.
type Passage struct {
	ID    string
	Index int
	Text  string
}

type embedVec struct {
	id  string
	vec []float32
}

type hit struct {
	id    string
	score float64
	rank  int
}

// Engine is the bound combination of a passage index and a
// retrieval-augmented completion chain for one user's transcript. Retrieval
// is hybrid: BM25 over a memory-only bleve index fused with cosine
// similarity over passage embeddings.
type Engine struct {
	provider provider.Provider
	index    bleve.Index
	vectors  []embedVec
	meta     map[string]Passage
	topK     int
}

// SplitPassages cuts text into fixed-size passages with no overlap. The
// final passage absorbs the remainder.
func SplitPassages(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	var passages []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		passages = append(passages, text[start:end])
	}
	return passages
}

// Build splits the transcript into passages, embeds them, and indexes both
// representations. Building is expensive but side-effect free; callers are
// responsible for binding at most one engine per session.
func Build(ctx context.Context, transcript string, p provider.Provider, passageSize, topK int) (*Engine, error) {
	texts := SplitPassages(transcript, passageSize)
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty transcript")
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	e := &Engine{
		provider: p,
		index:    index,
		meta:     make(map[string]Passage, len(texts)),
		topK:     topK,
	}
	if e.topK <= 0 {
		e.topK = 4
	}

	for i, text := range texts {
		passage := Passage{ID: fmt.Sprintf("passage-%03d", i), Index: i, Text: text}
		e.meta[passage.ID] = passage
		if err := index.Index(passage.ID, map[string]string{"text": passage.Text}); err != nil {
			return nil, fmt.Errorf("index passage %d: %w", i, err)
		}
	}

	vecs, err := p.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	for i, vec := range vecs {
		e.vectors = append(e.vectors, embedVec{id: fmt.Sprintf("passage-%03d", i), vec: vec})
	}
	return e, nil
}

// Answer retrieves the passages most relevant to query and asks the
// completion model to follow instruction against them. The instruction
// carries the mode-specific phrasing; query drives retrieval only.
func (e *Engine) Answer(ctx context.Context, query, instruction string) (string, error) {
	passages, err := e.retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Use the following passages from a podcast transcript to respond. If the passages do not contain the answer, say so.\n\n")
	for _, p := range passages {
		b.WriteString(p.Text)
		b.WriteString("\n---\n")
	}
	b.WriteString("\n")
	b.WriteString(instruction)
	return e.provider.Completion(ctx, b.String())
}

// Complete runs a bare completion with no retrieval, for post-processing
// steps such as sentiment grading.
func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	return e.provider.Completion(ctx, prompt)
}

func (e *Engine) retrieve(ctx context.Context, query string) ([]Passage, error) {
	bm25, err := e.bm25Search(query, e.topK)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	vecs, err := e.provider.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	var vector []hit
	if len(vecs) == 1 {
		vector = e.vectorSearch(vecs[0], e.topK)
	}

	fused := fuseRRF(bm25, vector, e.topK)
	if len(fused) == 0 {
		// fall back to passage order so the chain always has context
		for i := 0; i < e.topK && i < len(e.meta); i++ {
			fused = append(fused, hit{id: fmt.Sprintf("passage-%03d", i)})
		}
	}
	passages := make([]Passage, 0, len(fused))
	for _, h := range fused {
		if p, ok := e.meta[h.id]; ok {
			passages = append(passages, p)
		}
	}
	sort.Slice(passages, func(i, j int) bool { return passages[i].Index < passages[j].Index })
	return passages, nil
}

func (e *Engine) bm25Search(query string, k int) ([]hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), k*3, 0, false)
	res, err := e.index.Search(req)
	if err != nil {
		return nil, err
	}
	var out []hit
	for i, h := range res.Hits {
		out = append(out, hit{id: h.ID, score: h.Score, rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (e *Engine) vectorSearch(query []float32, k int) []hit {
	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	for _, v := range e.vectors {
		scoreds = append(scoreds, scored{id: v.id, score: cosine(query, v.vec)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })
	var out []hit
	for i, sc := range scoreds {
		out = append(out, hit{id: sc.id, score: sc.score, rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out
}

func fuseRRF(a, b []hit, k int) []hit {
	type agg struct {
		item  hit
		score float64
	}
	m := map[string]*agg{}
	add := func(list []hit) {
		for _, h := range list {
			x, ok := m[h.id]
			if !ok {
				m[h.id] = &agg{item: h}
				x = m[h.id]
			}
			x.score += 1.0 / float64(rrfK+h.rank)
		}
	}
	add(a)
	add(b)
	items := make([]agg, 0, len(m))
	for _, v := range m {
		items = append(items, *v)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score > items[j].score })
	out := make([]hit, 0, min(k, len(items)))
	for i := 0; i < min(k, len(items)); i++ {
		x := items[i].item
		x.score = items[i].score
		x.rank = i + 1
		out = append(out, x)
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
