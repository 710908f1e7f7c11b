package probability

import "github.com/matchdaylabs/qualprob/internal/domain/standings"

type Status string

const (
	StatusQualified  Status = "Qualified"
	StatusInProgress Status = "In Progress"
)

// TeamRow is one team's slot-probability estimate within a group, the
// pipeline's output unit. A Qualified row always carries ProbFillSlot 100.0.
// Position/Points/Played/GoalDiff may all be zero for seeded rows (hosts)
// that never appear in a standings table.
type TeamRow struct {
	Team          string                  `json:"team" validate:"required"`
	Confederation standings.Confederation `json:"confederation" validate:"required"`
	Status        Status                  `json:"qualification_status" validate:"required,oneof=Qualified 'In Progress'"`
	ProbFillSlot  float64                 `json:"prob_fill_slot" validate:"gte=1,lte=100"`
	CurrentGroup  string                  `json:"current_group" validate:"required"`
	Position      int                     `json:"position"`
	Points        int                     `json:"points"`
	Played        int                     `json:"played"`
	GoalDiff      int                     `json:"goal_diff"`
	Form          string                  `json:"form"`
}
