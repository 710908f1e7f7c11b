package priorfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

var header = []string{
	"confederation",
	"stage",
	"rank",
	"rank_bucket",
	"ppg_bucket",
	"lookup_level",
	"prob",
}

// Load reads the historical lookup CSV. A missing file is not an error: the
// pipeline then runs heuristic-only, which is the cold-start state before
// the first lookup generation.
func Load(path string) ([]prior.Row, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open historical lookup %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)

	first, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read historical lookup header: %w", err)
	}
	if !isHeader(first) {
		return nil, fmt.Errorf("historical lookup %s: unexpected header %v", path, first)
	}

	out := make([]prior.Row, 0, 128)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read historical lookup line %d: %w", line, err)
		}

		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("historical lookup line %d: %w", line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseRecord(record []string) (prior.Row, error) {
	confederation := standings.Confederation(strings.TrimSpace(record[0]))
	if !confederation.Valid() {
		return prior.Row{}, fmt.Errorf("unknown confederation %q", record[0])
	}

	row := prior.Row{
		Confederation: confederation,
		Stage:         strings.TrimSpace(record[1]),
		RankBucket:    strings.TrimSpace(record[3]),
		PPGBucket:     strings.TrimSpace(record[4]),
		LookupLevel:   strings.TrimSpace(record[5]),
	}

	if rankField := strings.TrimSpace(record[2]); rankField != "" {
		rank, err := strconv.Atoi(rankField)
		if err != nil {
			return prior.Row{}, fmt.Errorf("invalid rank %q: %w", rankField, err)
		}
		row.Rank = &rank
	}

	prob, err := strconv.ParseFloat(strings.TrimSpace(record[6]), 64)
	if err != nil {
		return prior.Row{}, fmt.Errorf("invalid prob %q: %w", record[6], err)
	}
	if prob < 0 || prob > 1 {
		return prior.Row{}, fmt.Errorf("prob %v out of range [0,1]", prob)
	}
	row.Prob = prob

	return row, nil
}

// Save writes the lookup table, replacing any previous file.
func Save(path string, rows []prior.Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create lookup directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create historical lookup %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write historical lookup header: %w", err)
	}
	for _, row := range rows {
		rank := ""
		if row.Rank != nil {
			rank = strconv.Itoa(*row.Rank)
		}
		record := []string{
			string(row.Confederation),
			row.Stage,
			rank,
			row.RankBucket,
			row.PPGBucket,
			row.LookupLevel,
			strconv.FormatFloat(row.Prob, 'f', 4, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write historical lookup row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush historical lookup: %w", err)
	}
	return f.Close()
}

func isHeader(record []string) bool {
	if len(record) != len(header) {
		return false
	}
	for i, field := range header {
		if !strings.EqualFold(strings.TrimSpace(record[i]), field) {
			return false
		}
	}
	return true
}
