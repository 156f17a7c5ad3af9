package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/ident"
	"github.com/D34dlyK1ss/whoisit/internal/models"
)

const (
	connIDLength  = 16
	outBufferSize = 32
)

// ErrAlreadyLoggedIn is returned when an account tries to bind to a second
// live connection.
var ErrAlreadyLoggedIn = errors.New("account is already logged in")

// ErrConnBound is returned when a connection that already carries an identity
// tries to bind a different account. The first identity must be detached
// first, otherwise its session entry would outlive the binding.
var ErrConnBound = errors.New("connection is already bound to an account")

// Conn is one live websocket session. The registry is the only owner of the
// outbound channel; every other layer refers to the connection by id.
type Conn struct {
	ID   string
	User *models.User // nil until a successful login

	Out    chan map[string]interface{}
	cancel context.CancelFunc
}

// ConnRegistry maps connection ids to live sessions and enforces
// one-live-connection-per-account. It implements game.Sender.
type ConnRegistry struct {
	log *logrus.Logger

	mu       sync.Mutex
	conns    map[string]*Conn
	sessions map[string]string // username -> connection id
}

func NewConnRegistry(log *logrus.Logger) *ConnRegistry {
	return &ConnRegistry{
		log:      log,
		conns:    make(map[string]*Conn),
		sessions: make(map[string]string),
	}
}

// Register allocates a fresh connection id, stores the session and queues
// the connect handshake message carrying the id.
func (cr *ConnRegistry) Register(cancel context.CancelFunc) *Conn {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	id := ident.New(connIDLength)
	for _, taken := cr.conns[id]; taken; _, taken = cr.conns[id] {
		id = ident.New(connIDLength)
	}

	conn := &Conn{
		ID:     id,
		Out:    make(chan map[string]interface{}, outBufferSize),
		cancel: cancel,
	}
	cr.conns[id] = conn

	conn.Out <- map[string]interface{}{
		"method": "connect",
		"connectionData": map[string]interface{}{
			"id": id,
		},
	}
	return conn
}

// AttachIdentity binds an authenticated user to a connection. Binding to a
// connection that already closed is a silent no-op (the login raced a
// disconnect); binding an account that is live elsewhere is rejected, as is
// rebinding a connection that already carries a different account.
func (cr *ConnRegistry) AttachIdentity(connID string, user *models.User) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if otherID, ok := cr.sessions[user.Username]; ok && otherID != connID {
		if _, live := cr.conns[otherID]; live {
			return ErrAlreadyLoggedIn
		}
		delete(cr.sessions, user.Username)
	}

	conn, ok := cr.conns[connID]
	if !ok {
		return nil
	}
	if conn.User != nil && conn.User.Username != user.Username {
		return ErrConnBound
	}
	conn.User = user
	cr.sessions[user.Username] = connID
	return nil
}

// DetachIdentity clears the bound identity on logout, leaving the
// connection itself open.
func (cr *ConnRegistry) DetachIdentity(connID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	conn, ok := cr.conns[connID]
	if !ok || conn.User == nil {
		return
	}
	delete(cr.sessions, conn.User.Username)
	conn.User = nil
}

// Send queues a message for a connection. Unknown ids are skipped silently:
// a send racing a disconnect is the expected case, not an error. A full
// buffer drops the message rather than stalling the caller.
func (cr *ConnRegistry) Send(connID string, msg map[string]interface{}) {
	cr.mu.Lock()
	conn, ok := cr.conns[connID]
	cr.mu.Unlock()
	if !ok {
		return
	}

	select {
	case conn.Out <- msg:
	default:
		cr.log.WithField("conn", connID).Warn("outbound buffer full, dropping message")
	}
}

// Unregister removes a connection and returns the identity that was bound
// to it, if any, so the caller can run logout-equivalent cleanup.
func (cr *ConnRegistry) Unregister(connID string) *models.User {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	conn, ok := cr.conns[connID]
	if !ok {
		return nil
	}
	delete(cr.conns, connID)
	if conn.User != nil {
		delete(cr.sessions, conn.User.Username)
	}
	conn.cancel()
	return conn.User
}

// Count returns the number of live connections.
func (cr *ConnRegistry) Count() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.conns)
}
