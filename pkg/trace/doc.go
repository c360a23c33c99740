// Package trace defines the raw records of a recorded program execution:
// activations ([Node]) and the call-graph relationships between them ([Edge]).
//
// # Overview
//
// A [Dataset] is what an external fetch collaborator hands to the engine. It
// holds the nodes and edges of one trial, or of two trials when a structural
// diff is requested (Trial1 != Trial2). Node indices are unique across the
// whole dataset, so the two trials never share an index.
//
// Records are immutable once received. [Ingest] validates a dataset before it
// reaches the tree builder: edges that reference a missing node index are
// dropped and counted as malformed records. Nothing in ingestion is fatal.
//
// # Edge Types
//
// [EdgeType] is a closed enumeration:
//
//   - [EdgeCall]: caller to its first callee (structural)
//   - [EdgeSequence]: callee to the next callee of the same caller (structural)
//   - [EdgeReturn]: callee back to its caller (rendering only)
//   - [EdgeLoop]: a node repeated by its caller (rendering only)
//   - [EdgeInitial]: the entry edge into the root (rendering only)
//
// # Wire Format
//
// Datasets use a snake_case JSON format:
//
//	{
//	  "trial1": 1, "trial2": 2,
//	  "nodes": [{"index": 0, "name": "main", "trial_id": 1, "parent_index": -1,
//	             "child_index": 0, "duration": 1.5}],
//	  "edges": [{"source": 0, "target": 1, "type": "call", "count": 1, "trial": 0}],
//	  "min_duration": {"1": 0}, "max_duration": {"1": 1.5}
//	}
//
// [ReadDataset] validates the document against an embedded JSON Schema before
// decoding it.
package trace
