// Package sheet is the xlsx codec for ledger blobs. The column layout is
// fixed and validated once at load time; a blob that does not match the
// schema is rejected as corrupt rather than indexed positionally.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"visitledger/internal/ledger"
	"visitledger/internal/visit"
)

const WorksheetName = "Sheet2"

// Header is the fixed column layout: sequence number, executive name, the
// morning count, total, raw history, the five per-type counts, afternoon.
var Header = []string{
	"SNO", "EXECUTIVE", "VISIT TOOL UTILIZATION", "TOTAL", "TIME",
	"CD3", "CD5", "CD7", "YB", "MIS", "AFTERNOON",
}

const (
	colSeq = iota
	colName
	colMorning
	colTotal
	colHistory
	colCD3
	colCD5
	colCD7
	colYB
	colMIS
	colAfternoon
	columnCount
)

const totalRowLabel = "TOTAL"

var ErrCorrupt = errors.New("ledger sheet is corrupt")

// Decode loads a ledger from an xlsx blob. Row aggregates and the grand total
// are recomputed from the stored histories so the decoded state is always
// exactly reproducible from them.
func Decode(data []byte, date ledger.DateKey) (*ledger.Ledger, error) {
	rows, totalIdx, err := readRows(data)
	if err != nil {
		return nil, err
	}

	l := &ledger.Ledger{Date: date, Total: visit.ZeroAggregate()}
	for _, row := range rows[1:totalIdx] {
		name := strings.TrimSpace(cell(row, colName))
		if name == "" {
			continue
		}
		history := strings.TrimSpace(cell(row, colHistory))
		l.Rows = append(l.Rows, ledger.Row{
			Name:    strings.ToUpper(name),
			History: history,
			Agg:     visit.Recompute(history),
		})
	}
	for i := range l.Rows {
		l.Rows[i].Seq = i + 1
		l.Total = l.Total.Add(l.Rows[i].Agg)
	}
	return l, nil
}

// Encode writes a ledger to a fresh xlsx blob.
func Encode(l *ledger.Ledger) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(WorksheetName); err != nil {
		return nil, fmt.Errorf("create worksheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default worksheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(WorksheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range l.Rows {
		values := rowValues(l.Rows[i])
		anchor, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(WorksheetName, anchor, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	total := totalValues(l.Total)
	anchor, _ := excelize.CoordinatesToCellName(1, len(l.Rows)+2)
	if err := f.SetSheetRow(WorksheetName, anchor, &total); err != nil {
		return nil, fmt.Errorf("write total row: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// CloneZeroed takes an existing ledger blob and clears every history and
// aggregate cell in place, keeping names, order and cell presentation. Used
// for day rollover and template-based creation.
func CloneZeroed(data []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer f.Close()

	_, totalIdx, err := readRowsFrom(f)
	if err != nil {
		return nil, err
	}

	for r := 2; r <= totalIdx; r++ {
		clearRow(f, r)
	}
	for c := colMorning; c < columnCount; c++ {
		name, _ := excelize.CoordinatesToCellName(c+1, totalIdx+1)
		if c == colHistory {
			_ = f.SetCellStr(WorksheetName, name, "")
			continue
		}
		_ = f.SetCellValue(WorksheetName, name, 0)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Rows returns the raw sheet rows of a ledger blob, schema-checked, for
// rendering. The total row is the final returned row.
func Rows(data []byte) ([][]string, error) {
	rows, totalIdx, err := readRows(data)
	if err != nil {
		return nil, err
	}
	return rows[:totalIdx+1], nil
}

func readRows(data []byte) ([][]string, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer f.Close()
	return readRowsFrom(f)
}

// readRowsFrom validates the worksheet, header layout and total-row marker,
// and returns the rows plus the total row index.
func readRowsFrom(f *excelize.File) ([][]string, int, error) {
	rows, err := f.GetRows(WorksheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: worksheet %s missing", ErrCorrupt, WorksheetName)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("%w: expected header and total rows", ErrCorrupt)
	}
	header := rows[0]
	if len(header) < len(Header) {
		return nil, 0, fmt.Errorf("%w: expected %d columns, found %d", ErrCorrupt, len(Header), len(header))
	}
	for i, want := range Header {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, 0, fmt.Errorf("%w: column %d is %q, want %q", ErrCorrupt, i+1, header[i], want)
		}
	}
	totalIdx := -1
	for i := len(rows) - 1; i >= 1; i-- {
		if strings.EqualFold(strings.TrimSpace(cell(rows[i], colSeq)), totalRowLabel) {
			totalIdx = i
			break
		}
	}
	if totalIdx < 0 {
		return nil, 0, fmt.Errorf("%w: total row missing", ErrCorrupt)
	}
	return rows, totalIdx, nil
}

func clearRow(f *excelize.File, row int) {
	for c := colMorning; c < columnCount; c++ {
		name, _ := excelize.CoordinatesToCellName(c+1, row)
		_ = f.SetCellStr(WorksheetName, name, "")
	}
}

func rowValues(row ledger.Row) []any {
	if row.History == "" {
		return []any{row.Seq, row.Name, "", "", "", "", "", "", "", "", ""}
	}
	return []any{
		row.Seq, row.Name, row.Agg.Morning, row.Agg.Total, row.History,
		row.Agg.PerType["CD3"], row.Agg.PerType["CD5"], row.Agg.PerType["CD7"],
		row.Agg.PerType["YB"], row.Agg.PerType["MIS"], row.Agg.Afternoon,
	}
}

func totalValues(total visit.Aggregate) []any {
	return []any{
		totalRowLabel, "", total.Morning, total.Total, "",
		total.PerType["CD3"], total.PerType["CD5"], total.PerType["CD7"],
		total.PerType["YB"], total.PerType["MIS"], total.Afternoon,
	}
}

// TableRow renders a decoded row the way the sheet stores it, for the JSON
// report payload.
func TableRow(row ledger.Row) []any {
	return rowValues(row)
}

// TotalTableRow renders an aggregate as a total line for the JSON report
// payload.
func TotalTableRow(total visit.Aggregate) []any {
	return totalValues(total)
}

// HeaderRow returns the header as a report payload row.
func HeaderRow() []any {
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	return header
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
