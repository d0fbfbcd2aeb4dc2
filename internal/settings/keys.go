package settings

// Recognised setting keys.
const (
	KeyOllamaURL         = "ollama_url"
	KeyCollectionName    = "collection_name"
	KeyEmbeddingModel    = "embedding_model"
	KeyBaseModelName     = "base_model_name"
	KeyPort              = "port"
	KeySQLiteWebPort     = "sqlite_web_port"
	KeyFlaskHost         = "flask_host"
	KeyChunkSize         = "chunk_size"
	KeyEmbeddingProvider = "embedding_provider"
	KeyChunkStrategy     = "chunk_strategy"
)

type entry struct {
	key    string
	value  string
	prompt string
}

// defaults seeded on first run, in prompt order
var defaults = []entry{
	{KeyOllamaURL, "http://localhost:11434", "Enter Ollama URL"},
	{KeyCollectionName, "documents", "Enter collection name"},
	{KeyEmbeddingModel, "snowflake-arctic-embed:latest", "Enter embedding model name"},
	{KeyBaseModelName, "", "Enter base model name"},
	{KeyPort, "3000", "Enter port"},
	{KeySQLiteWebPort, "9999", "Enter SQLite-Web port"},
	{KeyFlaskHost, "0.0.0.0", "Enter Flask host"},
	{KeyChunkSize, "500", "Enter chunk size"},
	{KeyEmbeddingProvider, "ollama", "Enter embedding provider (ollama or openai)"},
	{KeyChunkStrategy, "fixed", "Enter chunk strategy (fixed or recursive)"},
}

// required keys; an empty value triggers the interactive prompt
var required = []string{KeyOllamaURL, KeyCollectionName, KeyEmbeddingModel}

// Defaults returns a copy of the default values keyed by setting name.
func Defaults() map[string]string {
	out := make(map[string]string, len(defaults))
	for _, e := range defaults {
		out[e.key] = e.value
	}
	return out
}
