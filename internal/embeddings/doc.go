// Package embeddings generates vector embeddings for document chunks and
// search queries.
//
// Three providers are supported: Gemini (remote, task-typed embeddings),
// any OpenAI-compatible endpoint via langchaingo, and FastEmbed (local
// ONNX models, requires CGO). Service wraps the active provider with
// batching, inter-batch pacing, and dimension checks so ingestion never
// writes mismatched vectors into the store.
package embeddings
