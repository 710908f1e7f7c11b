package artifact

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

func sampleRows() []probability.TeamRow {
	return []probability.TeamRow{
		{
			Team:          "Spain",
			Confederation: standings.UEFA,
			Status:        probability.StatusInProgress,
			ProbFillSlot:  95.0,
			CurrentGroup:  "Group A",
			Position:      1,
			Points:        20,
			Played:        8,
			GoalDiff:      15,
			Form:          "6-2-0",
		},
		{
			Team:          "United States",
			Confederation: standings.CONCACAF,
			Status:        probability.StatusQualified,
			ProbFillSlot:  100.0,
			CurrentGroup:  "Host",
		},
	}
}

func TestWriteRowsProducesBothArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "probs.csv")
	jsonPath := filepath.Join(dir, "out", "probs.json")

	writer := NewWriter(csvPath, jsonPath)
	paths, err := writer.WriteRows(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("WriteRows() = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want csv and json", paths)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv records = %d, want header + 2 rows", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", records[0])
	}

	spain := records[1]
	if spain[0] != "Spain" || spain[3] != "95.0" || spain[5] != "1" || spain[9] != "6-2-0" {
		t.Errorf("spain row = %v", spain)
	}

	host := records[2]
	if host[0] != "United States" || host[2] != "Qualified" || host[3] != "100.0" {
		t.Errorf("host row = %v", host)
	}
	// Hosts carry no table position; the numeric cells stay blank.
	for i := 5; i <= 8; i++ {
		if host[i] != "" {
			t.Errorf("host cell %d = %q, want blank", i, host[i])
		}
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded []probability.TeamRow
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Team != "Spain" {
		t.Errorf("json rows = %+v", decoded)
	}
}

func TestWriteRowsCSVOnly(t *testing.T) {
	t.Parallel()

	csvPath := filepath.Join(t.TempDir(), "probs.csv")
	writer := NewWriter(csvPath, "")

	paths, err := writer.WriteRows(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("WriteRows() = %v", err)
	}
	if len(paths) != 1 || paths[0] != csvPath {
		t.Errorf("paths = %v", paths)
	}
}
