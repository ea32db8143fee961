package models

// EmbeddingRecord is one chunk's vector plus the metadata needed to cite it.
// The vector length must match the target index's declared dimension.
type EmbeddingRecord struct {
	ChunkID  string    `json:"chunk_id" bson:"chunk_id"`
	Order    int       `json:"order" bson:"order"`
	Text     string    `json:"text" bson:"text"`
	Source   string    `json:"source" bson:"source"`
	Category string    `json:"category,omitempty" bson:"category,omitempty"`
	Vector   []float32 `json:"vector,omitempty" bson:"vector,omitempty"`
}

// SearchMatch pairs a stored record with its similarity score.
type SearchMatch struct {
	Record EmbeddingRecord `json:"record"`
	Score  float64         `json:"score"`
}

// Passage is a grounded piece of evidence returned to the caller.
// Source retains the originating document name for citation.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// RetrievalOutcome is either grounded evidence or an explicit no-evidence
// signal. Grounded is never true with an empty passage list.
type RetrievalOutcome struct {
	Grounded bool      `json:"grounded"`
	Passages []Passage `json:"passages,omitempty"`
}
