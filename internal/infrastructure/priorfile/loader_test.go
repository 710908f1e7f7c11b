package priorfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	rows, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	rank := 1
	in := []prior.Row{
		{
			Confederation: standings.UEFA,
			Stage:         "Group Stage",
			Rank:          &rank,
			RankBucket:    "1",
			PPGBucket:     "all",
			LookupLevel:   prior.LevelRank,
			Prob:          0.8125,
		},
		{
			Confederation: standings.OFC,
			Stage:         "Second Round",
			RankBucket:    "3-4",
			PPGBucket:     "1.0-1.49",
			LookupLevel:   prior.LevelBucket,
			Prob:          0.25,
		},
	}

	path := filepath.Join(t.TempDir(), "lookup.csv")
	if err := Save(path, in); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}

	if out[0].Rank == nil || *out[0].Rank != 1 || out[0].Prob != 0.8125 {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].Rank != nil || out[1].LookupLevel != prior.LevelBucket {
		t.Errorf("out[1] = %+v", out[1])
	}

	idx := prior.NewIndex(out)
	rankEntries, bucketEntries := idx.Size()
	if rankEntries != 1 || bucketEntries != 1 {
		t.Errorf("index size = %d/%d, want 1/1", rankEntries, bucketEntries)
	}
}

func TestLoadRejectsBadRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cases := map[string]string{
		"bad_header.csv": "foo,bar\n",
		"bad_confed.csv": "confederation,stage,rank,rank_bucket,ppg_bucket,lookup_level,prob\nXYZ,Group Stage,1,1,all,rank,0.5\n",
		"bad_prob.csv":   "confederation,stage,rank,rank_bucket,ppg_bucket,lookup_level,prob\nUEFA,Group Stage,1,1,all,rank,1.5\n",
		"bad_rank.csv":   "confederation,stage,rank,rank_bucket,ppg_bucket,lookup_level,prob\nUEFA,Group Stage,one,1,all,rank,0.5\n",
	}

	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) accepted malformed input", name)
		}
	}
}
