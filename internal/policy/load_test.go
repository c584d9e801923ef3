package policy

import (
	"milterpolicy/internal/types"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		kind     error
		contains []string
	}{
		{
			name:     "bad port",
			doc:      "clamav:\n  servers:\n    - ok.example.com\n    - bad.example.com:99999\n",
			kind:     types.ErrInvalidPort,
			contains: []string{"line: 4", "clamav.servers", "bad.example.com:99999"},
		},
		{
			name:     "empty host",
			doc:      "spamd:\n  extra_servers:\n    - \":11333\"\n",
			kind:     types.ErrEmptyHost,
			contains: []string{"line: 3", "spamd.extra_servers"},
		},
		{
			name:     "bad priority",
			doc:      "spamd:\n  servers:\n    - host:11333:high\n",
			kind:     types.ErrInvalidPriority,
			contains: []string{"line: 3"},
		},
		{
			name:     "bad network",
			doc:      "our_networks:\n  - 10.0.0.0/8\n  - 10.0.0.0/40\n",
			kind:     types.ErrInvalidNetwork,
			contains: []string{"line: 3", "our_networks", "10.0.0.0/40"},
		},
		{
			name:     "cache mirror list too long",
			doc:      "cache:\n  servers_id:\n    - [a, b, c]\n",
			kind:     types.ErrInvalidConfig,
			contains: []string{"cache.servers_id"},
		},
		{
			name:     "not a list",
			doc:      "whitelist_rcpt: postmaster\n",
			kind:     types.ErrInvalidConfig,
			contains: []string{"whitelist_rcpt", "expected a list"},
		},
		{
			name:     "mapping item",
			doc:      "clamav:\n  servers:\n    - {host: a}\n",
			kind:     types.ErrInvalidConfig,
			contains: []string{"clamav.servers"},
		},
		{
			name: "invalid setting",
			doc:  "cache:\n  copy_probability: 150\n",
			kind: types.ErrInvalidConfig,
		},
		{
			name:     "scalar document",
			doc:      "postmaster\n",
			kind:     types.ErrInvalidConfig,
			contains: []string{"expected a mapping"},
		},
		{
			name: "malformed yaml",
			doc:  "clamav: [\n",
			kind: types.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse("policy.yml", []byte(tt.doc), nil)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
			assert.ErrorIs(t, err, tt.kind)
			for _, c := range tt.contains {
				assert.Contains(t, err.Error(), c)
			}
		})
	}
}

func TestParsePoolFull(t *testing.T) {
	var b strings.Builder
	b.WriteString("clamav:\n  servers:\n")
	for i := 0; i <= types.MaxClamAVServers; i++ {
		b.WriteString("    - clam.example.com\n")
	}
	_, err := Parse("policy.yml", []byte(b.String()), nil)
	require.ErrorIs(t, err, types.ErrPoolFull)
	assert.Contains(t, err.Error(), "maximum number of clamav servers is reached 48")
}

func TestParseEmpty(t *testing.T) {
	for _, doc := range []string{"", "# nothing here\n", "---\n", "---\n# still nothing\n"} {
		p, err := Parse("policy.yml", []byte(doc), nil)
		require.NoError(t, err, doc)
		assert.Equal(t, 0, p.Pools.Len(), doc)
		assert.Equal(t, types.DefaultSettings(), p.Settings, doc)
	}
	for _, doc := range []string{"whitelist_rcpt:\n", "clamav:\n  servers:\n"} {
		p, err := Parse("policy.yml", []byte(doc), nil)
		require.NoError(t, err, doc)
		assert.Equal(t, 0, p.Pools.Len(), doc)
		assert.Equal(t, 0, p.Rcpts.Len(types.ScopeGlobal), doc)
	}
}

func TestParseCommentedSettingsKeepDefaults(t *testing.T) {
	p, err := Parse("policy.yml", []byte("# greylisting only\n---\ngreylisting:\n  timeout: 10m\n"), nil)
	require.NoError(t, err)
	want := types.DefaultSettings()
	want.Greylisting.Timeout = 10 * time.Minute
	assert.Equal(t, want, p.Settings)
	assert.Equal(t, "x", p.Settings.Spamd.SpamBarChar)
}

func TestParseCacheSingletonList(t *testing.T) {
	p, err := Parse("policy.yml", []byte("cache:\n  servers_spam:\n    - [spam.example.com]\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Endpoint{{Address: "spam.example.com", Port: 11211}},
		p.Pools.Pool(types.CacheSpam).Endpoints())
}
