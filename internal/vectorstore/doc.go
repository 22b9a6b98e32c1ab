// Package vectorstore indexes embedded document chunks and serves
// similarity search over them.
//
// The package offers a single vector-first Store interface with two
// backends: chromem-go (embedded, default) and Qdrant (external, gRPC).
// Embedding happens upstream in the embeddings service; the store only
// receives and compares precomputed vectors.
//
// Entries are keyed by documentID:chunkID and carry the chunk text plus
// metadata stamped with document_id and chunk_id. Search ranks by cosine
// similarity, optionally restricted to one document, and drops hits below
// a similarity floor. Per-document deletes match on the document_id
// metadata.
//
// Basic usage:
//
//	store, err := vectorstore.NewStore(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Add(ctx, documentID, entries)
//	hits, err := store.Search(ctx, queryVector, 5, "", 0.0)
package vectorstore
