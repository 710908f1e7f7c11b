package prior

import (
	"strings"

	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

const (
	LevelRank   = "rank"
	LevelBucket = "bucket"
)

// Row is one record of the historical lookup table. Rank is nil for
// bucket-level rows.
type Row struct {
	Confederation standings.Confederation
	Stage         string
	Rank          *int
	RankBucket    string
	PPGBucket     string
	LookupLevel   string
	Prob          float64
}

type rankKey struct {
	confederation standings.Confederation
	stage         string
	rank          int
}

type bucketKey struct {
	confederation standings.Confederation
	stage         string
	rankBucket    string
	ppgBucket     string
}

// Index is a read-only lookup of historical qualification rates at two
// granularities: exact rank, and (rank bucket, PPG bucket). It is built once
// and safe for concurrent readers.
type Index struct {
	byRank   map[rankKey]float64
	byBucket map[bucketKey]float64
}

// NewIndex builds an Index from lookup rows. Rows flagged bucket-level, or
// with no rank, land in the bucket map; everything else in the rank map.
func NewIndex(rows []Row) *Index {
	idx := &Index{
		byRank:   make(map[rankKey]float64, len(rows)),
		byBucket: make(map[bucketKey]float64, len(rows)),
	}
	for _, row := range rows {
		if strings.EqualFold(row.LookupLevel, LevelBucket) || row.Rank == nil {
			idx.byBucket[bucketKey{
				confederation: row.Confederation,
				stage:         row.Stage,
				rankBucket:    row.RankBucket,
				ppgBucket:     row.PPGBucket,
			}] = row.Prob
			continue
		}
		idx.byRank[rankKey{
			confederation: row.Confederation,
			stage:         row.Stage,
			rank:          *row.Rank,
		}] = row.Prob
	}
	return idx
}

// EmptyIndex returns an index with no data; every lookup misses, which puts
// the estimator in heuristic-only mode.
func EmptyIndex() *Index {
	return NewIndex(nil)
}

// Size reports the number of rank-level and bucket-level entries.
func (idx *Index) Size() (rankEntries, bucketEntries int) {
	return len(idx.byRank), len(idx.byBucket)
}

// Lookup resolves the historical qualification probability for a table
// position, degrading gracefully: exact rank, exact rank with the stage
// truncated at its first " - " separator, bucketed, truncated-stage
// bucketed, then a miss.
func (idx *Index) Lookup(confederation standings.Confederation, stage string, rank, points, gamesPlayed int) (float64, bool) {
	if prob, ok := idx.byRank[rankKey{confederation, stage, rank}]; ok {
		return prob, true
	}
	coarse := TruncateStage(stage)
	if coarse != stage {
		if prob, ok := idx.byRank[rankKey{confederation, coarse, rank}]; ok {
			return prob, true
		}
	}

	rb := RankBucket(rank)
	pb := PPGBucket(points, gamesPlayed)
	if prob, ok := idx.byBucket[bucketKey{confederation, stage, rb, pb}]; ok {
		return prob, true
	}
	if coarse != stage {
		if prob, ok := idx.byBucket[bucketKey{confederation, coarse, rb, pb}]; ok {
			return prob, true
		}
	}
	return 0, false
}

// TruncateStage coarsens a stage label by cutting at the first " - "
// separator, e.g. "Round 2 - Group A" becomes "Round 2".
func TruncateStage(stage string) string {
	base, _, _ := strings.Cut(stage, " - ")
	return base
}

// RankBucket groups a table position into the coarse buckets the historical
// table is keyed by. Rank 0 (unknown) counts as a tail position.
func RankBucket(rank int) string {
	switch {
	case rank == 1:
		return "1"
	case rank == 2:
		return "2"
	case rank == 3 || rank == 4:
		return "3-4"
	case rank == 5:
		return "5"
	default:
		return "6+"
	}
}

// PointsPerGame returns points divided by games played, or 0 with no games
// played.
func PointsPerGame(points, gamesPlayed int) float64 {
	if gamesPlayed <= 0 {
		return 0
	}
	return float64(points) / float64(gamesPlayed)
}

func PPGBucket(points, gamesPlayed int) string {
	ppg := PointsPerGame(points, gamesPlayed)
	switch {
	case ppg >= 2.0:
		return ">=2"
	case ppg >= 1.5:
		return "1.5-1.99"
	case ppg >= 1.0:
		return "1.0-1.49"
	default:
		return "<1.0"
	}
}
