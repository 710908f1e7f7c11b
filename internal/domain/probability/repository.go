package probability

import "context"

// Repository upserts probability rows under the natural key
// (team, confederation, current_group). The whole batch is applied
// atomically, and the call reports how many rows were new versus replaced
// so job audits can distinguish first writes from refreshes.
type Repository interface {
	Upsert(ctx context.Context, rows []TeamRow) (inserted int, updated int, err error)
}
