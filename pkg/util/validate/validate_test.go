package validate

import (
	"strings"
	"testing"

	"nexus_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsername(t *testing.T) {
	name, err := Username("  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	for _, bad := range []string{"", "   ", "a#b", strings.Repeat("x", 33)} {
		_, err := Username(bad)
		assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err), bad)
	}
}

func TestContent(t *testing.T) {
	_, err := Content(strings.Repeat("字", 2000))
	assert.NoError(t, err)
	_, err = Content(strings.Repeat("字", 2001))
	assert.Error(t, err)
	_, err = Content(" \n ")
	assert.Error(t, err)
}

func TestParseHandle(t *testing.T) {
	u, tag, err := ParseHandle("bob#0042")
	require.NoError(t, err)
	assert.Equal(t, "bob", u)
	assert.Equal(t, "0042", tag)

	for _, bad := range []string{"bob", "#0042", "bob#", "bob#42", "bob#abcd"} {
		_, _, err := ParseHandle(bad)
		assert.Error(t, err, bad)
	}
}
