package models

const (
	ThinkTag            = `(?s)<think>.*?</think>`
	ContextSeparator    = "\n---\n"
	DefaultSystemPrompt = "You are a helpful assistant."
)

var (
	AskPromptTemplate = `Use the following context retrieved from the document collection to answer the question.
<context>
%s
</context>

User: %s
`
)
