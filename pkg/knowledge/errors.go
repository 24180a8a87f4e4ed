package knowledge

import "errors"

// ErrUnavailable is returned by Search when the corpus cannot be queried —
// the embedding call failed, or the database query itself errored (spec
// §7: KnowledgeUnavailable — "specialist continues without retrieval
// augmentation, prefixes response with a soft apology"). Callers use
// errors.Is against this, never string matching.
var ErrUnavailable = errors.New("knowledge: unavailable")
