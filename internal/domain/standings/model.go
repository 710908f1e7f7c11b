package standings

import "time"

// Confederation identifies one of the six continental governing bodies that
// runs its own World Cup qualification competition.
type Confederation string

const (
	AFC      Confederation = "AFC"
	CAF      Confederation = "CAF"
	CONCACAF Confederation = "CONCACAF"
	CONMEBOL Confederation = "CONMEBOL"
	UEFA     Confederation = "UEFA"
	OFC      Confederation = "OFC"
)

// All returns the confederations in a stable order.
func All() []Confederation {
	return []Confederation{AFC, CAF, CONCACAF, CONMEBOL, UEFA, OFC}
}

func (c Confederation) Valid() bool {
	switch c {
	case AFC, CAF, CONCACAF, CONMEBOL, UEFA, OFC:
		return true
	default:
		return false
	}
}

// Entry is the normalized standing for a single team within a group table.
// TeamName is the natural key for downstream joins; entries without a name
// are discarded before they reach this model.
type Entry struct {
	Rank           int
	TeamID         string
	TeamCode       string
	TeamName       string
	GamesPlayed    int
	Wins           int
	Draws          int
	Losses         int
	GoalsFor       int
	GoalsAgainst   int
	GoalDifference int
	Points         int
	RecordSummary  string
	Note           string
	// Raw keeps the untouched source record for debugging and forward
	// compatibility. It is never interpreted further.
	Raw map[string]any
}

// Group is one qualification table: a group within a stage, or a whole
// confederation when the source publishes a single ungrouped table.
// All entries share the group's confederation and stage.
type Group struct {
	Confederation Confederation
	GroupName     string
	Stage         string
	Entries       []Entry
	SourceURL     string
	FetchedAt     time.Time
	Checksum      string
}
