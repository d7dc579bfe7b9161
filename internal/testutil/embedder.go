// Package testutil holds deterministic collaborators shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

// LetterDimensions is the size of every LetterEmbedder vector
const LetterDimensions = 27

// LetterEmbedder embeds text as its letter histogram plus a constant bias
// component, so texts sharing words score higher than unrelated ones and
// no vector is ever zero.
type LetterEmbedder struct {
	mu    sync.Mutex
	calls [][]string
}

func (e *LetterEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = LetterVector(text)
	}
	return vectors, nil
}

// Calls returns the batches passed to CreateEmbedding so far
func (e *LetterEmbedder) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.calls...)
}

// Embedder wraps e the same way the production embedder wraps its client
func (e *LetterEmbedder) Embedder() embeddings.Embedder {
	impl, err := embeddings.NewEmbedder(e)
	if err != nil {
		panic(err)
	}
	return impl
}

func LetterVector(text string) []float32 {
	v := make([]float32, LetterDimensions)
	v[LetterDimensions-1] = 0.1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else if unicode.IsLetter(r) {
			v[LetterDimensions-1] += 0.01
		}
	}
	return v
}
