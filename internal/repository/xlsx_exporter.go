package repository

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	domrepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

const (
	forecastSheet  = "Forecast"
	dateCellFormat = "yyyy-mm-dd"
)

var forecastHeader = []interface{}{"Date", "Prediction", "LowerBound", "UpperBound"}

// XLSXExporter writes one workbook per forecast item under
// {outputDir}/{dataset}[/{branch}].
type XLSXExporter struct {
	outputDir string
	l         *applogger.Logger
}

var _ domrepo.Exporter = (*XLSXExporter)(nil)

func NewXLSXExporter(outputDir string, l *applogger.Logger) *XLSXExporter {
	if l == nil {
		l = applogger.Nop()
	}
	return &XLSXExporter{outputDir: outputDir, l: l}
}

func (e *XLSXExporter) Export(ctx context.Context, req domrepo.ExportRequest) (string, error) {
	if len(req.Rows) == 0 {
		return "", fmt.Errorf("%w: %w", models.ErrExportFailed, models.ErrEmptyForecast)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(e.outputDir, sanitizeFileName(req.Dataset))
	if req.Item.Branch != "" {
		dir = filepath.Join(dir, sanitizeFileName(req.Item.Branch))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", models.ErrExportFailed, dir, err)
	}

	path := filepath.Join(dir, ArtifactName(req.Item.Category, req.Rows, req.Evaluation))
	if err := writeForecastBook(path, req.Rows); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrExportFailed, err)
	}

	e.l.Debug("forecast exported",
		applogger.String("item", req.Item.String()),
		applogger.String("path", path),
		applogger.Int("rows", len(req.Rows)))
	return path, nil
}

// ArtifactName encodes category, forecast span and accuracy into the file name.
// A missing metric is written as N-A since "/" separates path elements.
func ArtifactName(category string, rows []models.ForecastRow, eval *models.EvaluationResult) string {
	first, last := rows[0].Date, rows[len(rows)-1].Date
	return fmt.Sprintf("%s_%s_%s_R2=%s_MAPE=%s.xlsx",
		sanitizeFileName(category), util.Compact(first), util.Compact(last),
		sanitizeFileName(eval.R2Label()), sanitizeFileName(eval.MAPELabel()))
}

var fileNameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
)

func sanitizeFileName(s string) string {
	s = fileNameReplacer.Replace(strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

func writeForecastBook(path string, rows []models.ForecastRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", forecastSheet); err != nil {
		return err
	}
	numFmt := dateCellFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(forecastSheet, "A1", &forecastHeader); err != nil {
		return err
	}

	for i, r := range rows {
		n := i + 2
		dateCell, _ := excelize.CoordinatesToCellName(1, n)
		if err := f.SetCellValue(forecastSheet, dateCell, r.Date); err != nil {
			return err
		}
		if err := f.SetCellStyle(forecastSheet, dateCell, dateCell, dateStyle); err != nil {
			return err
		}
		for col, v := range []float64{r.Point, r.Lower, r.Upper} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cellName, _ := excelize.CoordinatesToCellName(col+2, n)
			if err := f.SetCellValue(forecastSheet, cellName, int64(v)); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(forecastSheet, "A", "A", 12)

	return f.SaveAs(path)
}
