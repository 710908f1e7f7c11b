package scraperjob

import "context"

// Repository appends job audit records. Log never updates an existing
// record and must stay best-effort for callers: an audit failure should be
// reported, never allowed to mask the pipeline outcome itself.
type Repository interface {
	Log(ctx context.Context, job Job) (int64, error)
}
