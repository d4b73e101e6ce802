package xmpp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-xmpp"
	log "github.com/sirupsen/logrus"
)

var ErrMissingConfig = errors.New("missing xmpp config")

type (
	// Config of the race event notifier.
	Config struct {
		Host     string
		Jid      string
		Password string
		To       string
	}

	Xmpp struct {
		Config Config
	}
)

func serverName(jid string) string {
	i := strings.LastIndex(jid, "@")
	if i < 0 {
		return jid
	}
	return jid[i+1:]
}

// Enabled reports whether the config is complete enough to send.
func (c Config) Enabled() bool {
	return len(c.Jid) > 0 && len(c.Password) > 0 && len(c.To) > 0
}

func (x Xmpp) options() xmpp.Options {
	host := x.Config.Host
	if len(host) == 0 {
		host = serverName(x.Config.Jid)
	}

	return xmpp.Options{
		Host:          host,
		User:          x.Config.Jid,
		Password:      x.Config.Password,
		NoTLS:         true,
		StartTLS:      true,
		Debug:         false,
		Session:       false,
		Status:        "xa",
		StatusMessage: "Race control",
	}
}

// Send delivers one chat message to Config.To.
func (x Xmpp) Send(message string) error {
	if !x.Config.Enabled() {
		log.Warn("Missing xmpp config")
		return ErrMissingConfig
	}

	xmpp.DefaultConfig = tls.Config{
		InsecureSkipVerify: true,
	}

	options := x.options()
	log.Debugf("Connecting to xmpp server '%s' as '%s'", options.Host, options.User)

	talk, err := options.NewClient()
	if err != nil {
		log.WithError(err).Error("Error creating xmpp client")
		return fmt.Errorf("connecting to %s: %w", options.Host, err)
	}
	defer talk.Close()

	log.Debugf("Sending xmpp message to '%s'", x.Config.To)
	if _, err := talk.Send(xmpp.Chat{Remote: x.Config.To, Type: "chat", Text: message}); err != nil {
		return fmt.Errorf("sending to %s: %w", x.Config.To, err)
	}

	return nil
}
