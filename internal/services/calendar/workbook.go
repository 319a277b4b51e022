package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// Column headers used in the workbook.
const (
	colDate        = "Date"
	colHolidayName = "Holiday Name"
	colStartDate   = "Start Date"
	colEndDate     = "End Date"
)

// Workbook reads and writes the calendar spreadsheet with one sheet per table.
type Workbook struct {
	path string
}

var (
	_ repository.CalendarSource = (*Workbook)(nil)
	_ repository.CalendarWriter = (*Workbook)(nil)
)

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) Path() string { return w.path }

func (w *Workbook) LoadHolidays(_ context.Context) ([]models.CalendarEvent, error) {
	rows, err := w.sheetRows(TableHolidays)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := headerIndex(rows[0])
	dateCol, ok := idx[strings.ToLower(colDate)]
	if !ok {
		return nil, fmt.Errorf("sheet %s: missing %q column", TableHolidays, colDate)
	}
	labelCol, hasLabel := idx[strings.ToLower(colHolidayName)]

	out := make([]models.CalendarEvent, 0, len(rows)-1)
	for _, row := range rows[1:] {
		d, ok := parseCellDate(cell(row, dateCol))
		if !ok {
			continue
		}
		ev := models.CalendarEvent{Date: d}
		if hasLabel {
			ev.Label = strings.TrimSpace(cell(row, labelCol))
		}
		out = append(out, ev)
	}
	return out, nil
}

func (w *Workbook) LoadPeriods(_ context.Context, kind models.PeriodKind) ([]models.DateRange, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown period kind %q", kind)
	}
	rows, err := w.sheetRows(string(kind))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := headerIndex(rows[0])
	startCol, okS := idx[strings.ToLower(colStartDate)]
	endCol, okE := idx[strings.ToLower(colEndDate)]
	if !okS || !okE {
		return nil, fmt.Errorf("sheet %s: missing %q/%q columns", kind, colStartDate, colEndDate)
	}

	out := make([]models.DateRange, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// a missing bound stays zero and is dropped by the store
		start, _ := parseCellDate(cell(row, startCol))
		end, _ := parseCellDate(cell(row, endCol))
		if start.IsZero() && end.IsZero() {
			continue
		}
		out = append(out, models.DateRange{Start: start, End: end})
	}
	return out, nil
}

// Save rewrites every sheet. The file is replaced atomically via a temp file
// in the same directory.
func (w *Workbook) Save(_ context.Context, snap models.CalendarSnapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", TableHolidays)
	if err := writeSheet(f, TableHolidays, []string{colDate, colHolidayName}, len(snap.Holidays), func(i int) []interface{} {
		ev := snap.Holidays[i]
		return []interface{}{ev.Date.Format(util.DateLayout), ev.Label}
	}); err != nil {
		return err
	}
	for _, kind := range []models.PeriodKind{models.PeriodFasting, models.PeriodExam} {
		ranges := snap.Periods(kind)
		if _, err := f.NewSheet(string(kind)); err != nil {
			return fmt.Errorf("create sheet %s: %w", kind, err)
		}
		if err := writeSheet(f, string(kind), []string{colStartDate, colEndDate}, len(ranges), func(i int) []interface{} {
			return []interface{}{boundCell(ranges[i].Start), boundCell(ranges[i].End)}
		}); err != nil {
			return err
		}
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create calendar dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".events-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// boundCell leaves a missing period bound blank instead of writing year 1.
func boundCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(util.DateLayout)
}

func writeSheet(f *excelize.File, sheet string, header []string, n int, row func(i int) []interface{}) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i := 0; i < n; i++ {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func (w *Workbook) sheetRows(sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %s not found in %s", sheet, filepath.Base(w.path))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseCellDate accepts formatted dates as well as raw Excel serial numbers.
func parseCellDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, ok := util.ParseDate(s); ok {
		return d, true
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return util.Day(t), true
		}
	}
	return time.Time{}, false
}

// ErrWorkbookExists is returned by InitDefault when the file is already present.
var ErrWorkbookExists = errors.New("calendar workbook already exists")

// InitDefault creates the workbook with the built-in fasting and exam seasons
// and the given holidays. An existing file is left untouched.
func InitDefault(ctx context.Context, path string, holidays []models.CalendarEvent) error {
	if _, err := os.Stat(path); err == nil {
		return ErrWorkbookExists
	}
	snap := models.CalendarSnapshot{
		Holidays: dedupeHolidays(holidays),
		Fasting:  DefaultFasting(),
		Exams:    DefaultExams(),
	}
	return NewWorkbook(path).Save(ctx, snap)
}
