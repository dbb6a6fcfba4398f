package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "BSCS 1-A",
		Headers: []string{"Period", "MONDAY", "TUESDAY"},
		Rows: []map[string]string{
			{"Period": "1 (08:00-09:00)", "MONDAY": "CS101 / R-101"},
			{"Period": "2 (09:00-10:00)", "TUESDAY": "CS102"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Contains(t, f.ContentType(), "spreadsheetml")

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Period,MONDAY,TUESDAY", lines[0])
	assert.Equal(t, "1 (08:00-09:00),CS101 / R-101,", lines[1])

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "BSCS 1-A", title)

	value, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "CS101 / R-101", value)
}

func TestICSExporterRender(t *testing.T) {
	exp := NewICSExporter()
	exp.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	out, err := exp.Render("Faculty timetable", []CalendarEvent{{
		UID:      "s-1@timetable",
		Summary:  "CS101",
		Location: "R-101",
		Start:    start,
		End:      start.Add(time.Hour),
	}})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "UID:s-1@timetable")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;BYDAY=MO")
	assert.Contains(t, body, "LOCATION:R-101")

	_, err = exp.Render("", []CalendarEvent{{UID: "bad", Start: start, End: start}})
	assert.Error(t, err)
}
