package session_test

import (
	"testing"

	"github.com/bytechute/chute/internal/password"
	"github.com/bytechute/chute/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	s, err := session.New("example.com", 0, "", "")
	assert.NoError(t, err)
	assert.Equal(t, session.DefaultPort, s.Port())
	assert.Equal(t, session.DefaultFilename, s.Filename())
	assert.True(t, password.IsValid(s.Password()))
	assert.Equal(t, "example.com:9000", s.Addr())
}

func TestRequiresHost(t *testing.T) {
	_, err := session.New("", 9000, "file", "hunter2hunter2")
	assert.Error(t, err)
}

func TestAnnouncement(t *testing.T) {
	s, err := session.New("drop.example.com", 9999, "backup.tar", "s3cretT0ken")
	assert.NoError(t, err)

	a := s.Announcement()
	assert.Equal(t, "drop.example.com", a.Host)
	assert.Equal(t, 9999, a.Port)
	assert.Equal(t, "backup.tar", a.Filename)
	assert.Equal(t, "s3cretT0ken", a.Password)
	assert.Len(t, a.Modes, 3)
}
