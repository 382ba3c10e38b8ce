package mailer

import (
	"bytes"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func TestAlertBuildsMessage(t *testing.T) {
	sender := &captureSender{}
	m := NewWithSender(sender, "noreply@fieldtrack.test", "ops@fieldtrack.test", log.New(io.Discard, "", 0))

	err := m.Alert(models.Notification{
		ID:        3,
		Type:      models.NotificationFakeGPS,
		Message:   "Fake GPS detected for <rina>",
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@fieldtrack.test"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[high] FAKE_GPS alert"}, msg.GetHeader("Subject"))

	var body bytes.Buffer
	_, err = msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "&lt;rina&gt;")
}

func TestAlertWrapsSendError(t *testing.T) {
	boom := errors.New("smtp down")
	m := NewWithSender(&captureSender{err: boom}, "a@b", "c@d", log.New(io.Discard, "", 0))
	err := m.Alert(models.Notification{Type: models.NotificationFakeGPS})
	assert.ErrorIs(t, err, boom)
}
