// Package export writes scraped products to downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/vrsandeep/shelfie-go/internal/models"
	"github.com/vrsandeep/shelfie-go/internal/util"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the products in XLSX artifacts.
const SheetName = "Products"

const (
	timestampLayout = "2006-01-02_15-04-05"
	maxColumnWidth  = 255
)

// Columns is the header row of every export.
var Columns = []string{"product", "brand", "price", "weight", "website", "url", "page"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func row(p models.Product) []string {
	return []string{p.Name, p.Brand, p.Price, p.Weight, p.Store, p.URL, p.Page}
}

// ArtifactName returns the file name of a run's XLSX artifact.
func ArtifactName(prefix string, multiCategory bool, now time.Time) string {
	kind := "products"
	if multiCategory {
		kind = "multi_category"
	}
	return fmt.Sprintf("shelfie_%s_%s_%s.xlsx", util.SanitizeFileName(prefix), kind, now.Format(timestampLayout))
}

// CSVName returns the file name offered for a CSV export.
func CSVName(now time.Time) string {
	return fmt.Sprintf("shelfie_products_export_%s.csv", now.Format(timestampLayout))
}

// WriteXLSX writes products into dir/filename and returns the full path.
// Each column is sized to its longest value plus two characters.
func WriteXLSX(dir, filename string, products []models.Product) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return "", err
	}

	widths := make([]int, len(Columns))
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return "", err
	}

	for i, p := range products {
		values := row(p)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return "", err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return "", err
		}
		width := float64(w + 2)
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return path, nil
}

// WriteCSV writes products as UTF-8 CSV with a byte order mark, which keeps
// spreadsheet applications from misreading non-ASCII names.
func WriteCSV(w io.Writer, products []models.Product) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(row(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
