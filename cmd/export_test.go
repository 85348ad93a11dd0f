package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/geodata-br/censomap/internal/census"
)

var exportRows = []census.PercentageRow{
	{Code: 3304557, Name: "Rio de Janeiro", Category: census.CategoryParda, Count: 3000, Percent: 50},
	{Code: 3550308, Name: "São Paulo", Category: census.CategoryParda, Count: 4000, Percent: 40.25},
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeCSV(path, exportRows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, []string{"3304557", "Rio de Janeiro", "Parda", "3000", "50"}, records[1])
	assert.Equal(t, "40.25", records[2][4])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeXLSX(path, exportRows))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "percentuais", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "codigo", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "Rio de Janeiro", sheet.Rows[1].Cells[1].Value)

	pct, err := sheet.Rows[2].Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 40.25, pct, 0.001)
}
