// Package chunker splits text into ordered chunks. Sizes and overlaps are
// counted in runes, never bytes, so multi-byte characters are not cut.
package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"sales-support/internal/config"
	"sales-support/internal/models"
)

// Splitter turns a text into chunks
type Splitter interface {
	Split(text string) ([]models.Chunk, error)
}

// New returns the splitter of the given kind
func New(kind string, chunkSize, chunkOverlap int) (Splitter, error) {
	switch kind {
	case "", config.SplitterCharacter:
		return NewCharacter(chunkSize, chunkOverlap)
	case config.SplitterRecursive:
		return NewRecursive(chunkSize, chunkOverlap)
	default:
		return nil, fmt.Errorf("unknown splitter: %s", kind)
	}
}

func validate(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", models.ErrInvalidChunkConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap %d must not be negative", models.ErrInvalidChunkConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", models.ErrInvalidChunkConfig, chunkOverlap, chunkSize)
	}
	return nil
}

// Split chunks text with a fixed-size sliding window
func Split(text string, maxChunkSize, overlap int) ([]models.Chunk, error) {
	c, err := NewCharacter(maxChunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text)
}

// Character is a greedy sliding window over the runes of a text
type Character struct {
	chunkSize    int
	chunkOverlap int
}

func NewCharacter(chunkSize, chunkOverlap int) (*Character, error) {
	if err := validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &Character{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

func (c *Character) Split(text string) ([]models.Chunk, error) {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return []models.Chunk{}, nil
	}

	step := c.chunkSize - c.chunkOverlap
	chunks := make([]models.Chunk, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := min(start+c.chunkSize, total)
		chunks = append(chunks, models.Chunk{
			Content: string(runes[start:end]),
			Index:   len(chunks),
		})
		if end == total {
			break
		}
	}
	return chunks, nil
}

// Recursive splits on paragraph, line and word boundaries before falling back
// to single characters. Whitespace at chunk edges is trimmed.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursive(chunkSize, chunkOverlap int) (*Recursive, error) {
	if err := validate(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

func (r *Recursive) Split(text string) ([]models.Chunk, error) {
	if text == "" {
		return []models.Chunk{}, nil
	}
	docs, err := textsplitter.CreateDocuments(r.splitter, []string{text}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	chunks := make([]models.Chunk, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{Content: doc.PageContent, Index: len(chunks)})
	}
	return chunks, nil
}
