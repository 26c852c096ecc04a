package mail

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

func TestNewSenderWithoutHostLogs(t *testing.T) {
	var buf bytes.Buffer
	s := NewSender(config.MailConfig{}, log.New(&buf, "", 0))
	require.IsType(t, &LogSender{}, s)

	require.NoError(t, s.Send(context.Background(), Message{To: "ann@example.com", Subject: "Hi", Body: "body text"}))
	assert.Contains(t, buf.String(), "to=ann@example.com")
	assert.Contains(t, buf.String(), "body text")

	assert.Error(t, s.Send(context.Background(), Message{Subject: "Hi"}))
	assert.Error(t, s.Send(context.Background(), Message{To: "x@example.com"}))
}

func TestNewSenderWithHost(t *testing.T) {
	s := NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "box@example.com"}, nil)
	require.IsType(t, &SMTPSender{}, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@example.com", Subject: "s"}), context.Canceled)
}

func TestBuildSetsHeaders(t *testing.T) {
	msg := build("box@example.com", Message{To: "a@example.com", Subject: "Your tickets", Body: "Enjoy"})
	assert.Equal(t, []string{"box@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your tickets"}, msg.GetHeader("Subject"))

	var out bytes.Buffer
	_, err := msg.WriteTo(&out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), "Enjoy"))
}
