package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL_LowercasesAndStripsDefaults(t *testing.T) {
	t.Parallel()

	got, err := NormalizeURL("HTTP://Example.COM:80/Path?b=2&a=1#frag")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/Path?a=1&b=2", got)
}

func TestNormalizeURL_KeepsNonDefaultPort(t *testing.T) {
	t.Parallel()

	got, err := NormalizeURL("https://example.com:8443/x")
	require.NoError(t, err)
	require.Equal(t, "https://example.com:8443/x", got)
}

func TestNormalizeURL_RejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/just/a/path")
	require.Error(t, err)
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	t.Parallel()

	first, err := NormalizeURL("https://A.test/page?z=1&a=2")
	require.NoError(t, err)
	second, err := NormalizeURL(first)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolveURL_Relative(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://a.test/dir/page.html")
	require.NoError(t, err)

	got, err := ResolveURL(base, "../other")
	require.NoError(t, err)
	require.Equal(t, "https://a.test/other", got)
}

func TestResolveURL_ProtocolRelative(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://a.test/")
	require.NoError(t, err)

	got, err := ResolveURL(base, "//b.test/x")
	require.NoError(t, err)
	require.Equal(t, "https://b.test/x", got)
}

func TestResolveURL_FragmentOnly(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://a.test/page")
	require.NoError(t, err)

	got, err := ResolveURL(base, "#section")
	require.NoError(t, err)
	require.Equal(t, "https://a.test/page#section", got)
}

func TestResolveURL_AbsoluteUnchangedForAnyBase(t *testing.T) {
	t.Parallel()

	for _, baseRaw := range []string{"https://a.test/", "http://b.test/deep/dir/", "https://c.test/x?q=1"} {
		base, err := url.Parse(baseRaw)
		require.NoError(t, err)
		got, err := ResolveURL(base, "https://other.test/fixed")
		require.NoError(t, err)
		require.Equal(t, "https://other.test/fixed", got)
	}
}
