package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/shelfie-go/internal/models"
	"github.com/vrsandeep/shelfie-go/internal/util"
	"github.com/xuri/excelize/v2"
)

var sample = []models.Product{
	{Name: "Chicken Nuggets", Brand: "Sadia", Price: "AED 18.95", Weight: "400g", Store: "luluhypermarket.com", URL: "https://gcc.luluhypermarket.com/p/1", Page: "https://gcc.luluhypermarket.com/c?page=1"},
	{Name: "Peas", Brand: "Frozen", Price: "AED 5.25", Weight: "900g", Store: "luluhypermarket.com"},
}

func TestArtifactName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "shelfie_lulu_products_2024-03-09_14-05-07.xlsx", ArtifactName("lulu", false, now))
	assert.Equal(t, "shelfie_spinneys_multi_category_2024-03-09_14-05-07.xlsx", ArtifactName("spinneys", true, now))
	assert.Equal(t, "shelfie_products_export_2024-03-09_14-05-07.csv", CSVName(now))

	name := ArtifactName("Union Coop/../x", false, now)
	assert.Equal(t, "shelfie_Union_Coop-.-x_products_2024-03-09_14-05-07.xlsx", name)
	_, err := util.ResolveArtifact(t.TempDir(), name)
	assert.NoError(t, err, "artifact names must be downloadable")
}

func TestWriteXLSX(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	path, err := WriteXLSX(dir, "out.xlsx", sample)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"Chicken Nuggets", "Sadia", "AED 18.95", "400g", "luluhypermarket.com", "https://gcc.luluhypermarket.com/p/1", "https://gcc.luluhypermarket.com/c?page=1"}, rows[1])

	width, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Chicken Nuggets")+2), width)

	width, err = f.GetColWidth(SheetName, "D")
	require.NoError(t, err)
	assert.Equal(t, float64(len("weight")+2), width)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "Peas", records[2][0])
	assert.Equal(t, "", records[2][5])
}
