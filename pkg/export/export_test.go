package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	data := Dataset{Headers: []string{"field", "value"}}
	data.AddRow("eligible", "true")
	data.AddRow("message", "You're right at the boundary — don't skip any more classes!")
	return data
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "field,value\neligible,true\nmessage,You're right at the boundary — don't skip any more classes!\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	out, err := exporter.Render(sampleDataset(), "Attendance calculation")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterPaginatesWideTables(t *testing.T) {
	data := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f", "g"}}
	for i := 0; i < 120; i++ {
		data.AddRow("1", "2", "3", "4", "5", "6", "a very long value that will not fit into a narrow column")
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())
	assert.Equal(t, "history.pdf", f.Filename("history"))

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
