package domain

type SystemMode string

const (
	ModeSingleAgent SystemMode = "single-agent"
	ModeMultiAgent  SystemMode = "multi-agent"
)

// ResolveSystemLabel returns the label echoed back to callers, unchanged.
// Only an empty label falls back to multi-agent.
func ResolveSystemLabel(raw string) string {
	if raw == "" {
		return string(ModeMultiAgent)
	}
	return raw
}

// IsMultiAgent reports whether label selects the multi-agent topology.
// Only the exact single-agent label disables it.
func IsMultiAgent(label string) bool {
	return ResolveSystemLabel(label) != string(ModeSingleAgent)
}

type ModelSelection struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// RAGConfig is the resolved configuration handed to the answering backend.
// Values are copied per request; never mutate a shared instance.
type RAGConfig struct {
	LLM        ModelSelection `json:"llm"`
	Embeddings ModelSelection `json:"embeddings"`

	DataFolders           []string `json:"data_folders"`
	VectorStoreBaseDir    string   `json:"vector_store_base_dir"`
	DefaultVectorStoreDir string   `json:"vector_store_dir"`
	VectorStoreDirs       []string `json:"vector_store_dirs"`

	TopK      int  `json:"top_k"`
	UseRerank bool `json:"use_rerank"`

	MultiAgent  bool   `json:"use_multiagent"`
	AgenticMode string `json:"agentic_mode"`
}

func (c RAGConfig) Clone() RAGConfig {
	out := c
	out.DataFolders = append([]string(nil), c.DataFolders...)
	out.VectorStoreDirs = append([]string(nil), c.VectorStoreDirs...)
	return out
}

// WithSystemMode derives a request-scoped copy whose multi-agent flag follows
// the requested system label.
func (c RAGConfig) WithSystemMode(label string) RAGConfig {
	out := c.Clone()
	out.MultiAgent = IsMultiAgent(label)
	return out
}

type RetrievalInfo struct {
	TopK      int  `json:"top_k"`
	UseRerank bool `json:"use_rerank"`
}

type ExecutionInfo struct {
	MultiAgent  bool   `json:"multi_agent"`
	AgenticMode string `json:"agentic_mode"`
}

// SystemInfo is the introspection view of a resolved configuration.
type SystemInfo struct {
	LLM          ModelSelection `json:"llm"`
	Embeddings   ModelSelection `json:"embeddings"`
	VectorStores []string       `json:"vector_stores"`
	DataFolders  []string       `json:"data_folders"`
	Retrieval    RetrievalInfo  `json:"retrieval"`
	System       ExecutionInfo  `json:"system"`
}

func (c RAGConfig) Describe() SystemInfo {
	cfg := c.Clone()
	return SystemInfo{
		LLM:          cfg.LLM,
		Embeddings:   cfg.Embeddings,
		VectorStores: cfg.VectorStoreDirs,
		DataFolders:  cfg.DataFolders,
		Retrieval: RetrievalInfo{
			TopK:      cfg.TopK,
			UseRerank: cfg.UseRerank,
		},
		System: ExecutionInfo{
			MultiAgent:  cfg.MultiAgent,
			AgenticMode: cfg.AgenticMode,
		},
	}
}
