package htmllisting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<html>
<head><title>Index of /.git/</title></head>
<body>
<a href="../">../</a>
<a href="HEAD">HEAD</a>
<a href="config">config</a>
<a href="refs/">refs/</a>
<a href="/etc/passwd">absolute</a>
<a href="https://evil.example/x">scheme+host</a>
<a href="//evil.example/x">protocol-relative</a>
<a href=".">dot</a>
</body>
</html>`

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML([]byte(listingPage)))
	assert.False(t, IsHTML([]byte("not html at all")))
}

func TestLinks_FiltersToRelativeSameDirectory(t *testing.T) {
	links, err := Links([]byte(listingPage))
	require.NoError(t, err)
	assert.Equal(t, []string{"HEAD", "config", "refs/"}, links)
}

func TestLinks_EmptyBody(t *testing.T) {
	links, err := Links([]byte("<html></html>"))
	require.NoError(t, err)
	assert.Empty(t, links)
}
