package artifact

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
)

var csvHeader = []string{
	"team",
	"confederation",
	"qualification_status",
	"prob_fill_slot",
	"current_group",
	"position",
	"points",
	"played",
	"goal_diff",
	"form",
}

// Writer produces the CSV and JSON output files consumed downstream. The
// CSV is the primary artifact; JSON mirrors it for programmatic readers.
type Writer struct {
	csvPath  string
	jsonPath string
}

func NewWriter(csvPath, jsonPath string) *Writer {
	return &Writer{csvPath: csvPath, jsonPath: jsonPath}
}

func (w *Writer) WriteRows(_ context.Context, rows []probability.TeamRow) ([]string, error) {
	written := make([]string, 0, 2)

	if w.csvPath != "" {
		if err := w.writeCSV(rows); err != nil {
			return written, err
		}
		written = append(written, w.csvPath)
	}

	if w.jsonPath != "" {
		if err := w.writeJSON(rows); err != nil {
			return written, err
		}
		written = append(written, w.jsonPath)
	}

	return written, nil
}

func (w *Writer) writeCSV(rows []probability.TeamRow) error {
	if err := ensureDir(w.csvPath); err != nil {
		return err
	}

	f, err := os.Create(w.csvPath)
	if err != nil {
		return fmt.Errorf("create csv artifact %s: %w", w.csvPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("write csv row team=%s: %w", row.Team, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv artifact: %w", err)
	}
	return f.Close()
}

// csvRecord leaves the table-position cells blank for seeded rows (hosts),
// which never hold a position.
func csvRecord(row probability.TeamRow) []string {
	position, points, played, goalDiff := "", "", "", ""
	if row.Position > 0 {
		position = strconv.Itoa(row.Position)
		points = strconv.Itoa(row.Points)
		played = strconv.Itoa(row.Played)
		goalDiff = strconv.Itoa(row.GoalDiff)
	}
	return []string{
		row.Team,
		string(row.Confederation),
		string(row.Status),
		strconv.FormatFloat(row.ProbFillSlot, 'f', 1, 64),
		row.CurrentGroup,
		position,
		points,
		played,
		goalDiff,
		row.Form,
	}
}

func (w *Writer) writeJSON(rows []probability.TeamRow) error {
	if err := ensureDir(w.jsonPath); err != nil {
		return err
	}

	raw, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json artifact: %w", err)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.Write(raw)
	_, _ = buf.WriteString("\n")

	if err := os.WriteFile(w.jsonPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write json artifact %s: %w", w.jsonPath, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory %s: %w", dir, err)
	}
	return nil
}
