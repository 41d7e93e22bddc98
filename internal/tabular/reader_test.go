package tabular

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, next func() (Record, error)) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestReader_SemicolonDelimitedPreservesOrder(t *testing.T) {
	in := "url;Perfume;Brand\n" +
		"https://x/a-1.html;one;b1\n" +
		"https://x/b-2.html;two;b2\n" +
		"https://x/c-3.html;three;b3\n"

	r, err := NewReader(strings.NewReader(in), Options{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "Perfume", "Brand"}, r.Header())

	recs := drain(t, r.Next)
	require.Len(t, recs, 3)
	assert.Equal(t, "one", recs[0].Get("Perfume"))
	assert.Equal(t, "two", recs[1].Get("Perfume"))
	assert.Equal(t, "b3", recs[2].Get("Brand"))
}

func TestReader_MaxRowsCapsOutput(t *testing.T) {
	in := "a\n1\n2\n3\n4\n"
	r, err := NewReader(strings.NewReader(in), Options{MaxRows: 2})
	require.NoError(t, err)

	recs := drain(t, r.Next)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[1].Get("a"))

	// The cap is sticky.
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_WrongWidthRowsPassThrough(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	recs := drain(t, r.Next)
	require.Len(t, recs, 2)

	short := recs[0]
	assert.Equal(t, "2", short.Get("b"))
	_, ok := short["c"]
	assert.False(t, ok)
	assert.Equal(t, "", short.Get("c"), "missing keys read as empty")

	assert.Equal(t, "3", recs[1].Get("c"))
	assert.Len(t, recs[1], 3)
}

func TestReader_StripsBOMAndTrimsHeader(t *testing.T) {
	in := "\uFEFF url , Description\nhttps://x/a-1.html,hello\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"url", "Description"}, r.Header())

	recs := drain(t, r.Next)
	require.Len(t, recs, 1)
	assert.Equal(t, "https://x/a-1.html", recs[0].Get("url"))
}

func TestReader_QuotedDelimiterAndLazyQuotes(t *testing.T) {
	in := "url,Perfumers\n" +
		"u1,\"['A', 'B']\"\n" +
		"u2,a \"quoted\" name\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	recs := drain(t, r.Next)
	require.Len(t, recs, 2)
	assert.Equal(t, "['A', 'B']", recs[0].Get("Perfumers"))
	assert.Equal(t, `a "quoted" name`, recs[1].Get("Perfumers"))
}

func TestReader_InvalidUTF8IsReplaced(t *testing.T) {
	in := "a\nca\xfffe\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	recs := drain(t, r.Next)
	require.Len(t, recs, 1)
	assert.Equal(t, "ca\uFFFDfe", recs[0].Get("a"))
}

func TestNewReader_EmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadAll_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.csv")
	require.NoError(t, os.WriteFile(path, []byte("url,Description\nu1,d1\nu2,d2\n"), 0o644))

	recs, err := ReadAll(path, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "d2", recs[1].Get("Description"))
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]Record{{"a": "1"}, {"a": "2"}})
	recs := drain(t, src.Next)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[1].Get("a"))
}
