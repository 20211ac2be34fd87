// Package overlay implements deterministic deep merging of multi-document
// YAML streams with deletion and skip sentinels.
//
// A base stream and an override stream are positionally aligned: the Nth
// override document merges into the Nth base document. Within a document,
// mappings merge recursively, sequences merge by index, and anything else is
// replaced outright by the override value. Two sentinel forms steer the merge:
//
//   - Deletion: a null scalar written with the configured literal (tilde by
//     default) in a mapping value position removes that key from the result.
//
//	    volumeMounts: ~
//
//   - List skip: a null element in an override sequence keeps the base
//     element at that index unchanged.
//
//	    containers:
//	      -
//	      - image: registry.tld/other:v2
//
// Merging never mutates its inputs; a fresh document stream is allocated for
// the output. The operation is deterministic and safe to run concurrently
// from independent call sites.
package overlay
