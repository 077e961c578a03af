package client

import "go.uber.org/atomic"

// idSeq generates non-zero, process-unique client identifiers. The
// original source used the OS process id, which is both non-zero and
// unique for the lifetime of an outstanding exchange (§3 "Client
// identity"); an in-process monotonic counter starting at 1 gives the same
// two guarantees without needing a real fork per client.
var idSeq atomic.Int64

// NextID returns the next non-zero client id.
func NextID() int64 { return idSeq.Inc() }
