package handlers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRegisterEmitsConnect(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)

	require.Len(t, conn.ID, connIDLength)

	msg := <-conn.Out
	assert.Equal(t, "connect", msg["method"])
	data := msg["connectionData"].(map[string]interface{})
	assert.Equal(t, conn.ID, data["id"])
}

func TestSendToUnknownConnectionIsNoop(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	// must not panic or block
	cr.Send("does-not-exist", map[string]interface{}{"method": "gameWon"})
}

func TestSendDropsOnFullBuffer(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)

	for i := 0; i < outBufferSize+10; i++ {
		cr.Send(conn.ID, map[string]interface{}{"method": "updateChat"})
	}
	// the loop above must have returned; queued messages are capped
	assert.LessOrEqual(t, len(conn.Out), outBufferSize)
}

func TestUnregisterReturnsIdentity(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)

	user := &models.User{Username: "ana"}
	require.NoError(t, cr.AttachIdentity(conn.ID, user))

	got := cr.Unregister(conn.ID)
	require.NotNil(t, got)
	assert.Equal(t, "ana", got.Username)
	assert.Equal(t, 0, cr.Count())

	// second unregister is a silent skip
	assert.Nil(t, cr.Unregister(conn.ID))
}

func TestAttachIdentityRejectsDuplicateLogin(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancelA := context.WithCancel(context.Background())
	_, cancelB := context.WithCancel(context.Background())
	connA := cr.Register(cancelA)
	connB := cr.Register(cancelB)

	user := &models.User{Username: "ana"}
	require.NoError(t, cr.AttachIdentity(connA.ID, user))

	err := cr.AttachIdentity(connB.ID, &models.User{Username: "ana"})
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)

	// once the first connection is gone, the account can bind again
	cr.Unregister(connA.ID)
	assert.NoError(t, cr.AttachIdentity(connB.ID, &models.User{Username: "ana"}))
}

func TestAttachIdentityRejectsRebind(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	connA := cr.Register(cancel)

	require.NoError(t, cr.AttachIdentity(connA.ID, &models.User{Username: "ana"}))

	// a second login on the same connection must not displace the first
	assert.ErrorIs(t, cr.AttachIdentity(connA.ID, &models.User{Username: "rita"}), ErrConnBound)
	assert.Equal(t, "ana", connA.User.Username)

	// re-attaching the same account is harmless
	assert.NoError(t, cr.AttachIdentity(connA.ID, &models.User{Username: "ana"}))

	// the account is free again once the connection closes
	cr.Unregister(connA.ID)
	_, cancelB := context.WithCancel(context.Background())
	connB := cr.Register(cancelB)
	assert.NoError(t, cr.AttachIdentity(connB.ID, &models.User{Username: "ana"}))
}

func TestAttachIdentityOnClosedConnectionIsSilent(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)
	cr.Unregister(conn.ID)

	// login raced the disconnect: no error, no session
	assert.NoError(t, cr.AttachIdentity(conn.ID, &models.User{Username: "ana"}))
	_, cancel2 := context.WithCancel(context.Background())
	conn2 := cr.Register(cancel2)
	assert.NoError(t, cr.AttachIdentity(conn2.ID, &models.User{Username: "ana"}))
}

func TestDetachIdentity(t *testing.T) {
	cr := NewConnRegistry(testLogger())
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)

	require.NoError(t, cr.AttachIdentity(conn.ID, &models.User{Username: "ana"}))
	cr.DetachIdentity(conn.ID)
	assert.Nil(t, conn.User)

	// account is free again
	_, cancel2 := context.WithCancel(context.Background())
	conn2 := cr.Register(cancel2)
	assert.NoError(t, cr.AttachIdentity(conn2.ID, &models.User{Username: "ana"}))
}
