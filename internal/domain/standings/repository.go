package standings

import "context"

// Repository persists normalized standings snapshots. Upserts are keyed by
// (confederation, stage, group_name, team_id) so repeated runs converge.
type Repository interface {
	UpsertGroups(ctx context.Context, groups []Group) error
}
