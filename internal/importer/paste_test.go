package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morflash/morflash/internal/importer"
)

func TestRecordsFromPaste(t *testing.T) {
	raw := "apple - a fruit\n" +
		"\n" +
		"  bank - a financial institution  \n" +
		"no separator here\n" +
		" - definition without term\n" +
		"term without definition - \n" +
		"well-known - widely recognized\n"

	records := importer.RecordsFromPaste(raw)
	require.Len(t, records, 3)

	assert.Equal(t, importer.Record{Term: "apple", Definition: "a fruit"}, records[0])
	assert.Equal(t, importer.Record{Term: "bank", Definition: "a financial institution"}, records[1])

	// The split is on the first hyphen, so the rest of a hyphenated term
	// ends up in the definition.
	assert.Equal(t, importer.Record{Term: "well", Definition: "known - widely recognized"}, records[2])
}

func TestRecordsFromPaste_Empty(t *testing.T) {
	assert.Empty(t, importer.RecordsFromPaste(""))
	assert.Empty(t, importer.RecordsFromPaste("\n\n  \n"))
	assert.Empty(t, importer.RecordsFromPaste("no delimiter at all"))
}

func TestRecordsFromPaste_KeepsInputOrder(t *testing.T) {
	records := importer.RecordsFromPaste("b - 2\na - 1\nc - 3")
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[0].Term)
	assert.Equal(t, "a", records[1].Term)
	assert.Equal(t, "c", records[2].Term)
}

func TestRecordsFromTabbed(t *testing.T) {
	raw := "run\tmove fast\tshe runs daily\tirregular verb\thttps://example.org/run\r\n" +
		"walk\tmove slowly\n" +
		"jump\thop\twith both feet\n" +
		"incomplete line\n" +
		"\tmissing term\n"

	records := importer.RecordsFromTabbed(raw)
	require.Len(t, records, 3)

	assert.Equal(t, importer.Record{
		Term:       "run",
		Definition: "move fast",
		Example:    "she runs daily",
		Notes:      "irregular verb",
		Hyperlink:  "https://example.org/run",
	}, records[0])
	assert.Equal(t, importer.Record{Term: "walk", Definition: "move slowly"}, records[1])
	assert.Equal(t, importer.Record{Term: "jump", Definition: "hop", Example: "with both feet"}, records[2])
}
