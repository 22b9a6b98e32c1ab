// Package chunker splits extracted document text into sentence-aligned,
// overlapping chunks sized for embedding.
//
// Text is first cut into sentences at '.', '!', or '?' followed by
// whitespace. Sentences are then greedily packed into chunks of at most
// the configured size (in characters), and each new chunk is seeded with
// the trailing sentences of the previous one up to the configured
// overlap, so retrieval does not lose context at chunk boundaries. A
// single sentence longer than the chunk size is kept whole as its own
// chunk.
//
// Paginated documents are chunked page by page: every chunk carries its
// page number as metadata, and chunk IDs run sequentially across pages.
package chunker
