package models

// Chunk is a bounded span of an input text, in split order
type Chunk struct {
	Content string  `json:"content"`
	Index   int     `json:"index"`
	Score   float32 `json:"score,omitempty"`
}

// Document is a chunk as it is handed to a vector index.
// Vector may be nil, the index then computes it with its own embedder.
type Document struct {
	ID        string    `json:"id"`
	IndexName string    `json:"index_name"`
	Content   string    `json:"content"`
	Index     int       `json:"index"`
	Vector    []float32 `json:"-"`
}

// Contents returns the text of every chunk
func Contents(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}

// NewDocuments pairs every chunk with the index it is headed for
func NewDocuments(indexName string, chunks []Chunk) []Document {
	docs := make([]Document, len(chunks))
	for i, c := range chunks {
		docs[i] = Document{
			IndexName: indexName,
			Content:   c.Content,
			Index:     c.Index,
		}
	}
	return docs
}
