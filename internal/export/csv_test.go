package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utcc/social-mentions/internal/models"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestDelimited_EscapingRoundTrip(t *testing.T) {
	value := `He said "hi", then left`
	rows := []*Row{NewRow("id", 1, "text", value)}

	data := Delimited(rows, []string{"id", "text"})

	assert.Contains(t, string(data), `"He said ""hi"", then left"`)
	records := parseCSV(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "text"}, records[0])
	assert.Equal(t, []string{"1", value}, records[1])
}

func TestDelimited_Newlines(t *testing.T) {
	rows := []*Row{NewRow("text", "line one\nline two")}

	records := parseCSV(t, Delimited(rows, nil))

	assert.Equal(t, "line one\nline two", records[1][0])
}

func TestDelimited_UnionHeaderInFirstSeenOrder(t *testing.T) {
	rows := []*Row{
		NewRow("id", 1, "faculty", "Law"),
		NewRow("id", 2, "topics", []string{"a", "b"}, "faculty", "CS"),
		NewRow("extra", nil),
	}

	records := parseCSV(t, Delimited(rows, nil))

	assert.Equal(t, []string{"id", "faculty", "topics", "extra"}, records[0])
	assert.Equal(t, []string{"1", "Law", "", ""}, records[1])
	assert.Equal(t, []string{"2", "CS", `["a","b"]`, ""}, records[2])
	assert.Equal(t, []string{"", "", "", ""}, records[3])
}

func TestDelimited_ExplicitColumnsWin(t *testing.T) {
	rows := []*Row{NewRow("id", 1, "faculty", "Law", "ignored", true)}

	records := parseCSV(t, Delimited(rows, []string{"faculty", "id", "missing"}))

	assert.Equal(t, []string{"faculty", "id", "missing"}, records[0])
	assert.Equal(t, []string{"Law", "1", ""}, records[1])
}

func TestWrite_EmptyInput(t *testing.T) {
	assert.Equal(t, []byte(EmptyPlaceholder), Delimited(nil, MentionColumns))
	assert.Equal(t, []byte(EmptyPlaceholder), Write(nil, nil, Options{HeaderOnlyWhenEmpty: true}))

	headerOnly := Write(nil, []string{"id", "faculty"}, Options{HeaderOnlyWhenEmpty: true})
	assert.Equal(t, "id,faculty\n", string(headerOnly))
}

func TestStringify(t *testing.T) {
	score := 0.5
	var missing *float64

	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"typed string", models.Negative, "negative"},
		{"int", 12, "12"},
		{"float", 0.25, "0.25"},
		{"float pointer", &score, "0.5"},
		{"nil float pointer", missing, ""},
		{"bool", true, "true"},
		{"slice", []string{"x"}, `["x"]`},
		{"nil slice", []string(nil), ""},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}

func TestRow_SetKeepsFirstPosition(t *testing.T) {
	r := NewRow("a", 1, "b", 2)
	r.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
