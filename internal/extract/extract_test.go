package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"  First paragraph about wine.  ",
		"",
		`{"api": {"key": "value"}}`,
		"[1, 2, 3]",
		"PHA+PGEgaHJlZj0iaHR0cHM6Ly9leGFtcGxlLmNvbSI+bGluazwvYT48L3A+",
		"Short+Token=",
		"Second paragraph.",
	}, "\n")
	got := CleanText(in)
	require.Equal(t, "First paragraph about wine.  \nShort+Token=\nSecond paragraph.", got)
	require.Empty(t, CleanText(""))
	require.Empty(t, CleanText("{}\n\n[]"))
}

func TestTrafilaturaExtractsArticle(t *testing.T) {
	t.Parallel()

	para := "Bordeaux wine is produced in the Bordeaux region of southwest France, around the city of Bordeaux, on the Garonne River. "
	html := `<!doctype html><html><head><title>Bordeaux wine</title></head><body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article><h1>Bordeaux wine</h1>
<p>` + strings.Repeat(para, 3) + `</p>
<p>The region is divided by the Gironde estuary into a left bank and a right bank, each with its own dominant grape varieties and classification systems.</p>
<p>` + strings.Repeat("Merlot and Cabernet Sauvignon dominate the blends, with Cabernet Franc, Petit Verdot and Malbec in smaller proportions. ", 2) + `</p>
</article>
<footer>Copyright</footer></body></html>`

	text, err := NewTrafilatura(zap.NewNop()).Extract(html, "https://example.com/bordeaux")
	require.NoError(t, err)
	require.Contains(t, text, "Gironde estuary")
}

func TestTrafilaturaEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := NewTrafilatura(nil).Extract("   ", "https://example.com")
	require.ErrorIs(t, err, ErrNoContent)
}

func TestLinksSameHostOnly(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="/a">A</a>
<a href="b?x=1#frag">B</a>
<a href="https://example.com/a">A again</a>
<a href="#top">top</a>
<a href="mailto:me@example.com">mail</a>
<a href="tel:+33100000000">tel</a>
<a href="JavaScript:void(0)">js</a>
<a href="https://other.com/c">other</a>
<a href="https://example.com:8443/d">other port</a>
<a href="ftp://example.com/e">ftp</a>
<a>no href</a>
</body></html>`

	got := NewLinks().Links(html, "https://example.com/dir/page")
	require.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/dir/b?x=1",
	}, got)
}

func TestLinksBadInput(t *testing.T) {
	t.Parallel()

	require.Nil(t, NewLinks().Links("", "https://example.com"))
	require.Nil(t, NewLinks().Links("<a href='/x'>x</a>", "not-a-url"))
}
