package models

const (
	DefaultIndexName      = "netec-ssm"
	DefaultChunkSize      = 100
	DefaultChunkOverlap   = 0
	DefaultTopK           = 4
	DefaultChatAttempts   = 3
	DefaultEmbedDimension = 1536

	DefaultChatModel        = "gpt-3.5-turbo"
	DefaultChatTemperature  = 0.3
	DefaultCompletionModel  = "gpt-3.5-turbo-instruct"
	DefaultCompletionTemp   = 0.7
	DefaultCompletionTokens = 256
	DefaultEmbeddingModel   = "text-embedding-ada-002"

	// metadata keys stored next to every indexed chunk
	MetadataChunkIndex = "chunk_index"
	MetadataIndexName  = "index_name"

	ConceptPlaceholder = "concept"
)

// SalesRole is the preamble shared by every sales prompt
const SalesRole = `You are a helpful sales assistant at Netec who sells
specialized training and exam preparation services to existing customers.
You provide concise explanations of the services that Netec offers in 100
words or less.`

var (
	TrainingServicesInstruction = `Explain the training services that Netec offers about {concept}`

	OracleTrainingServicesInstruction = `Note that Netec is the exclusive provider of Oracle training services
for the 6 levels of Oracle Certification credentials: Oracle Certified Junior Associate (OCJA),
Oracle Certified Associate (OCA), Oracle Certified Professional (OCP),
Oracle Certified Master (OCM), Oracle Certified Expert (OCE) and
Oracle Certified Specialist (OCS).
Summarize their programs for {concept}`
)
