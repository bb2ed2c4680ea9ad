package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "acm_10001_0100", CompositeKey("acme", "10001", "2125550100"))
	// Short components are used whole; empty components keep the separators.
	assert.Equal(t, "ab_100_", CompositeKey("ab", "100", ""))
	assert.Equal(t, "__", CompositeKey("", "", ""))
	// ZIP+4 is truncated to the 5-digit prefix.
	assert.Equal(t, "acm_10001_0100", CompositeKey("acme", "10001-4321", "2125550100"))
}

func TestNameAndAddrKeys(t *testing.T) {
	assert.Equal(t, "acmewi", NameKey("acme widgets"))
	assert.Equal(t, "", NameKey(""))
	assert.Equal(t, "100mai", AddrKey("100 main st"))
}

func TestKeyModes(t *testing.T) {
	assert.Equal(t, "acm_10001_0100", Key(ModeComposite, "acme", "100 main st", "10001", "2125550100"))
	assert.Equal(t, "2125550100", Key(ModePhone, "acme", "100 main st", "10001", "2125550100"))
	assert.Equal(t, "acmewi", Key(ModeName, "acme widgets", "100 main st", "10001", "2125550100"))
	// Name mode falls back to the address key when the name is empty.
	assert.Equal(t, "100mai", Key(ModeName, "", "100 main st", "10001", "2125550100"))
	// No components at all yields the empty key, which callers turn into a
	// singleton block.
	assert.Equal(t, "", Key(ModePhone, "acme", "100 main st", "10001", ""))
	assert.Equal(t, "", Key(ModeName, "", "", "10001", "2125550100"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeComposite, m)

	m, err = ParseMode("phone")
	require.NoError(t, err)
	assert.Equal(t, ModePhone, m)

	_, err = ParseMode("bogus")
	assert.Error(t, err)
}
