package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCSV(t, `Entity,Code,Year,Air pollution,"Smoking, daily",Alcohol use
Afghanistan,AFG,1990,100,50.5,10
Afghanistan,AFG,1991,110,bad,12
"Congo, Rep.",COG,1990,20,5,1
BadYear,XXX,19x0,1,1,1
ShortRow,XXX,1990
`)

	tab, err := Load(path, "test", "Entity")
	require.NoError(t, err)

	// BadYear and ShortRow are skipped whole
	require.Equal(t, 3, tab.NumRows())
	assert.Equal(t, []string{"Air pollution", "Smoking, daily", "Alcohol use"}, tab.Columns)
	assert.Equal(t, []string{"Afghanistan", "Congo, Rep."}, tab.EntityDict)
	assert.Equal(t, []string{"AFG", "COG"}, tab.Codes)
	assert.Equal(t, 1990, tab.MinYear)
	assert.Equal(t, 1991, tab.MaxYear)

	// Row order is file order
	assert.Equal(t, []int32{1990, 1991, 1990}, tab.Years)
	assert.Equal(t, "Afghanistan", tab.Entity(0))
	assert.Equal(t, "Congo, Rep.", tab.Entity(2))

	// Malformed numeric cell ("bad") is zero-filled, not an error
	smoking, ok := tab.ColumnIndex("Smoking, daily")
	require.True(t, ok)
	assert.Equal(t, []float64{50.5, 0, 5}, tab.Values[smoking])

	air, ok := tab.ColumnIndex("Air pollution")
	require.True(t, ok)
	assert.Equal(t, []float64{100, 110, 20}, tab.Values[air])
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeCSV(t, "Entity,Code,Year,Deaths\n")
	tab, err := Load(path, "test", "Entity")
	require.NoError(t, err)
	assert.Equal(t, 0, tab.NumRows())
	assert.Equal(t, []string{"Deaths"}, tab.Columns)
}

func TestLoadFailures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "test", "Entity")
	assert.Error(t, err)

	// Wrong entity column name is fatal, not silently empty
	path := writeCSV(t, "Country,Code,Year,Deaths\nFrance,FRA,1990,5\n")
	_, err = Load(path, "test", "Entity")
	assert.ErrorContains(t, err, "entity column")

	path = writeCSV(t, "Entity,Code,Deaths\nFrance,FRA,5\n")
	_, err = Load(path, "test", "Entity")
	assert.ErrorContains(t, err, "Year column")
}

func TestLoadEntityColumnCaseAndQuotes(t *testing.T) {
	path := writeCSV(t, `"Country/Territory",Code,Year,Deaths
France,FRA,1990,7
`)
	tab, err := Load(path, "causes", "Country/Territory")
	require.NoError(t, err)
	require.Equal(t, 1, tab.NumRows())
	assert.Equal(t, "France", tab.Entity(0))
}

func TestParseMeasure(t *testing.T) {
	cases := map[string]float64{
		"123.45": 123.45,
		"0":      0,
		"42":     42,
		"-5":     -5,
		" 7 ":    7,
		"":       0,
		"bad":    0,
		"12x":    0,
		"1e3":    0,
		"-":      0,
		".5":     0.5,
	}
	for in, want := range cases {
		assert.InDelta(t, want, parseMeasure([]byte(in)), 1e-9, "parseMeasure(%q)", in)
	}
}

func TestParseYear(t *testing.T) {
	y, ok := parseYear([]byte("2019"))
	require.True(t, ok)
	assert.Equal(t, int32(2019), y)

	for _, bad := range []string{"", "19x0", "20199", "-1"} {
		_, ok := parseYear([]byte(bad))
		assert.False(t, ok, "parseYear(%q)", bad)
	}
}

func TestCutField(t *testing.T) {
	f, rest, more := cutField([]byte(`"Congo, Rep.",COG,1990`))
	assert.Equal(t, "Congo, Rep.", string(f))
	assert.True(t, more)
	assert.Equal(t, "COG,1990", string(rest))

	f, _, more = cutField([]byte(`"say ""hi"""`))
	assert.Equal(t, `say "hi"`, string(f))
	assert.False(t, more)

	f, rest, more = cutField([]byte("a,b"))
	assert.Equal(t, "a", string(f))
	assert.True(t, more)
	assert.Equal(t, "b", string(rest))
}
