package usecase

import (
	"math"
	"strings"

	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

// EstimatorConfig tunes the slot-probability model. Weights blend the
// standings heuristic with the historical qualification rate; multipliers
// discount confederations whose table position is a weaker signal.
type EstimatorConfig struct {
	HeuristicWeight float64
	HistoryWeight   float64
	Multipliers     map[standings.Confederation]float64
	MinProb         float64
	MaxProb         float64
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		HeuristicWeight: 0.6,
		HistoryWeight:   0.4,
		Multipliers: map[standings.Confederation]float64{
			standings.UEFA:     1.0,
			standings.CONMEBOL: 1.0,
			standings.AFC:      0.95,
			standings.CAF:      0.95,
			standings.CONCACAF: 0.9,
			standings.OFC:      0.7,
		},
		MinProb: 1,
		MaxProb: 95,
	}
}

// Estimator scores how likely a team is to fill a qualification slot given
// its current table position and, when available, historical outcomes for
// similar positions.
type Estimator struct {
	cfg    EstimatorConfig
	priors *prior.Index
}

func NewEstimator(cfg EstimatorConfig, priors *prior.Index) *Estimator {
	if cfg.HeuristicWeight <= 0 && cfg.HistoryWeight <= 0 {
		cfg.HeuristicWeight = DefaultEstimatorConfig().HeuristicWeight
		cfg.HistoryWeight = DefaultEstimatorConfig().HistoryWeight
	}
	if len(cfg.Multipliers) == 0 {
		cfg.Multipliers = DefaultEstimatorConfig().Multipliers
	}
	if cfg.MaxProb <= cfg.MinProb {
		cfg.MinProb = DefaultEstimatorConfig().MinProb
		cfg.MaxProb = DefaultEstimatorConfig().MaxProb
	}
	if priors == nil {
		priors = prior.EmptyIndex()
	}
	return &Estimator{cfg: cfg, priors: priors}
}

// Status reads the table note: anything mentioning qualification marks the
// team as already through.
func (e *Estimator) Status(note string) probability.Status {
	lowered := strings.ToLower(note)
	if strings.Contains(lowered, "qualifies") || strings.Contains(lowered, "qualified") {
		return probability.StatusQualified
	}
	return probability.StatusInProgress
}

// Estimate returns the slot probability in percent, rounded to one decimal.
// Already-qualified teams are pinned at 100.
func (e *Estimator) Estimate(item CollectedEntry) float64 {
	if e.Status(item.Entry.Note) == probability.StatusQualified {
		return 100.0
	}

	heuristic := e.heuristicScore(item)

	blended := heuristic
	if histProb, ok := e.priors.Lookup(
		item.Confederation,
		item.Stage,
		item.Entry.Rank,
		item.Entry.Points,
		item.Entry.GamesPlayed,
	); ok && histProb > 0 {
		blended = e.cfg.HeuristicWeight*heuristic + e.cfg.HistoryWeight*(histProb*100)
	}

	return roundProb(clamp(blended, e.cfg.MinProb, e.cfg.MaxProb))
}

func (e *Estimator) heuristicScore(item CollectedEntry) float64 {
	score := 0.0

	switch rank := item.Entry.Rank; {
	case rank >= 1 && rank <= 2:
		score += 70
	case rank == 3:
		score += 50
	case rank == 4:
		score += 30
	case rank == 5:
		score += 15
	default:
		score += 5
	}

	ppg := prior.PointsPerGame(item.Entry.Points, item.Entry.GamesPlayed)
	switch {
	case ppg >= 2.0:
		score += 15
	case ppg >= 1.5:
		score += 10
	case ppg >= 1.0:
		score += 5
	case ppg < 0.5:
		score -= 10
	}

	switch gd := item.Entry.GoalDifference; {
	case gd > 10:
		score += 10
	case gd > 5:
		score += 5
	case gd < -5:
		score -= 10
	}

	multiplier, ok := e.cfg.Multipliers[item.Confederation]
	if !ok {
		multiplier = 1.0
	}
	return score * multiplier
}

// BuildRow converts a collected table entry into an output row.
func (e *Estimator) BuildRow(item CollectedEntry) probability.TeamRow {
	return probability.TeamRow{
		Team:          item.Entry.TeamName,
		Confederation: item.Confederation,
		Status:        e.Status(item.Entry.Note),
		ProbFillSlot:  e.Estimate(item),
		CurrentGroup:  item.GroupName,
		Position:      item.Entry.Rank,
		Points:        item.Entry.Points,
		Played:        item.Entry.GamesPlayed,
		GoalDiff:      item.Entry.GoalDifference,
		Form:          item.Entry.RecordSummary,
	}
}

// HostRows returns the seeded tournament hosts, qualified by right rather
// than by table position.
func HostRows(hostTeams []string) []probability.TeamRow {
	out := make([]probability.TeamRow, 0, len(hostTeams))
	for _, team := range hostTeams {
		team = strings.TrimSpace(team)
		if team == "" {
			continue
		}
		out = append(out, probability.TeamRow{
			Team:          team,
			Confederation: standings.CONCACAF,
			Status:        probability.StatusQualified,
			ProbFillSlot:  100.0,
			CurrentGroup:  "Host",
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundProb(v float64) float64 {
	return math.Round(v*10) / 10
}
