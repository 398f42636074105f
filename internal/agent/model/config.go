package model

// ================ Config ================

// ClassifierModelConfig configures the routing/classification model.
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

// AnswerModelConfig configures the model used for query generation,
// narration and synthesis.
type AnswerModelConfig struct {
	Model       string  `envconfig:"ANSWER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ANSWER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ANSWER_TEMPERATURE" default:"0"`
}

// CatalogConfig configures the relational product store.
type CatalogConfig struct {
	DBPath string `envconfig:"CATALOG_DB_PATH" default:"products.db"`
	// TitleSample bounds how many known product titles are listed in the
	// query-generation prompt.
	TitleSample int `envconfig:"CATALOG_TITLE_SAMPLE" default:"100"`
}

// IndexConfig configures the semantic index.
type IndexConfig struct {
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	TopK           int    `envconfig:"INDEX_TOP_K" default:"5"`
	ChunkSize      int    `envconfig:"INDEX_CHUNK_SIZE" default:"500"`
	ChunkOverlap   int    `envconfig:"INDEX_CHUNK_OVERLAP" default:"50"`
	CachePath      string `envconfig:"INDEX_CACHE_PATH" default:"embeddings.json"`
}

// ConversationConfig configures per-conversation behaviour.
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"15m"`
	// MaxIterations bounds the classify/retrieve loop. The loop is forced to
	// synthesis with whatever partial data exists once exceeded.
	MaxIterations int `envconfig:"CONVERSATION_MAX_ITERATIONS" default:"4"`
	// AnswerPreview bounds how much of the previous product answer is shown
	// to the classifier.
	AnswerPreview int `envconfig:"CONVERSATION_ANSWER_PREVIEW" default:"200"`
}
