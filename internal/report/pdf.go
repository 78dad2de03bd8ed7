package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/verte-zerg/gazereport/internal/model"
)

const (
	fontFamily    = "Arial"
	titleFontSize = 16
	bodyFontSize  = 12
	lineHeight    = 10
	notesGap      = 10
)

// Renderer writes single-page PDF reports.
type Renderer struct {
	Task string
	// Now supplies the date printed on the page; defaults to time.Now.
	Now func() time.Time
	// Compress toggles stream compression in the PDF output.
	Compress bool
}

// NewRenderer returns a renderer with compression enabled.
func NewRenderer(task string) *Renderer {
	return &Renderer{Task: task, Now: time.Now, Compress: true}
}

// Render writes the report for workerID to path, replacing any existing file.
func (r *Renderer) Render(workerID string, report model.MetricsReport, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.Write(file, workerID, report); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	return nil
}

// Write renders the report for workerID to w.
func (r *Renderer) Write(w io.Writer, workerID string, report model.MetricsReport) error {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(fmt.Sprintf("Worker %s report", workerID), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	for _, line := range Lines(workerID, report, r.Task, now) {
		switch line.Kind {
		case LineTitle:
			pdf.SetFont(fontFamily, "B", titleFontSize)
			pdf.CellFormat(0, lineHeight, tr(line.Text), "", 1, "", false, 0, "")
			pdf.SetFont(fontFamily, "", bodyFontSize)
		case LineNotes:
			pdf.Ln(notesGap)
			pdf.MultiCell(0, lineHeight, tr(line.Text), "", "", false)
		default:
			pdf.CellFormat(0, lineHeight, tr(line.Text), "", 1, "", false, 0, "")
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report for %s: %w", workerID, err)
	}
	return nil
}
