package competency_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		opts       competency.ReadOptions
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "plain",
			input:      "idnumber,shortname\na,A\n",
			wantHeader: []string{"idnumber", "shortname"},
			wantRows:   [][]string{{"a", "A"}},
		},
		{
			name:       "byte order mark",
			input:      "\xEF\xBB\xBFidnumber,shortname\na,A\n",
			wantHeader: []string{"idnumber", "shortname"},
			wantRows:   [][]string{{"a", "A"}},
		},
		{
			name:       "semicolon and blank lines",
			input:      "idnumber;shortname\n\n;\na;\"A;B\"\n",
			opts:       competency.ReadOptions{Delimiter: "semicolon"},
			wantHeader: []string{"idnumber", "shortname"},
			wantRows:   [][]string{{"a", "A;B"}},
		},
		{
			name:       "tab",
			input:      "idnumber\tshortname\na\tA\n",
			opts:       competency.ReadOptions{Delimiter: "tab"},
			wantHeader: []string{"idnumber", "shortname"},
			wantRows:   [][]string{{"a", "A"}},
		},
		{
			name:       "windows-1252",
			input:      "idnumber,shortname\ncafe,Caf\xe9\n",
			opts:       competency.ReadOptions{Encoding: "windows-1252"},
			wantHeader: []string{"idnumber", "shortname"},
			wantRows:   [][]string{{"cafe", "Café"}},
		},
		{
			name:       "ragged rows",
			input:      "a,b,c\n1\n1,2,3,4\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"1"}, {"1", "2", "3", "4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows, err := competency.ReadCSV(strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, header)
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestReadCSV_InvalidUTF8Replaced(t *testing.T) {
	_, rows, err := competency.ReadCSV(strings.NewReader("h\nbad\xffbyte\n"), competency.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bad�byte", rows[0][0])
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  competency.ReadOptions
	}{
		{"empty", "", competency.ReadOptions{}},
		{"only blank lines", "\n\n", competency.ReadOptions{}},
		{"bad delimiter", "a,b\n", competency.ReadOptions{Delimiter: "pipe-ish"}},
		{"bad encoding", "a,b\n", competency.ReadOptions{Encoding: "klingon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := competency.ReadCSV(strings.NewReader(tt.input), tt.opts)
			require.ErrorIs(t, err, competency.ErrInvalidImportFile)
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": ',', "comma": ',', "Semicolon": ';', "colon": ':', "tab": '\t', "|": '|'} {
		got, err := competency.ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := competency.ParseDelimiter(`"`)
	assert.Error(t, err)
}
