package xmpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerName(t *testing.T) {
	assert.Equal(t, "example.org", serverName("race@example.org"))
	assert.Equal(t, "example.org", serverName("example.org"))
}

func TestOptions(t *testing.T) {
	x := Xmpp{Config: Config{Jid: "race@example.org", Password: "secret", To: "skipper@example.org"}}
	assert.True(t, x.Config.Enabled())
	assert.Equal(t, "example.org", x.options().Host)

	x.Config.Host = "xmpp.example.org:5222"
	assert.Equal(t, "xmpp.example.org:5222", x.options().Host)
	assert.Equal(t, "race@example.org", x.options().User)
}

func TestSendWithoutConfig(t *testing.T) {
	x := Xmpp{Config: Config{Jid: "race@example.org"}}
	assert.False(t, x.Config.Enabled())
	assert.ErrorIs(t, x.Send("gate 1 crossed"), ErrMissingConfig)
}
