package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D34dlyK1ss/whoisit/internal/auth"
	"github.com/D34dlyK1ss/whoisit/internal/game"
	"github.com/D34dlyK1ss/whoisit/internal/mailer"
	"github.com/D34dlyK1ss/whoisit/internal/models"
)

type nopReporter struct{}

func (nopReporter) Report(context.Context, models.MatchRecord) {}

func setupServer(t *testing.T) (*Server, *ConnRegistry) {
	t.Helper()
	log := testLogger()
	conns := NewConnRegistry(log)
	games := game.NewRegistry(log, conns, nopReporter{})
	codes := auth.NewCodeStore(time.Minute)
	return NewServer(log, conns, games, codes, mailer.NewLogMailer(log)), conns
}

func newTestConn(t *testing.T, cr *ConnRegistry) *Conn {
	t.Helper()
	_, cancel := context.WithCancel(context.Background())
	conn := cr.Register(cancel)
	<-conn.Out // drain the connect handshake
	return conn
}

func drain(conn *Conn) []map[string]interface{} {
	var out []map[string]interface{}
	for {
		select {
		case msg := <-conn.Out:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func loginAs(t *testing.T, s *Server, conn *Conn, username string) {
	t.Helper()
	require.NoError(t, s.Conns.AttachIdentity(conn.ID, &models.User{Username: username}))
}

func TestDispatchMalformedJSON(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)

	s.Dispatch(context.Background(), conn, []byte("{not json"))

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alert", msgs[0]["method"])
	assert.Equal(t, true, msgs[0]["error"])
}

func TestDispatchUnknownMethodIgnored(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)

	s.Dispatch(context.Background(), conn, []byte(`{"method":"teleport"}`))

	assert.Empty(t, drain(conn))
}

func TestGameCommandsRequireLogin(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)

	for _, raw := range []string{
		`{"method":"newGame","items":[{"name":"Ana"},{"name":"Rita"}],"tries":2}`,
		`{"method":"joinGame","gameId":"abcd1234"}`,
		`{"method":"startGame","gameId":"abcd1234"}`,
		`{"method":"leaveGame","gameId":"abcd1234"}`,
		`{"method":"sendChatMessage","gameId":"abcd1234","text":"hi"}`,
		`{"method":"guess","gameId":"abcd1234","guess":"Ana"}`,
		`{"method":"createCategory","name":"x","items":[{"name":"a"},{"name":"b"}]}`,
	} {
		s.Dispatch(context.Background(), conn, []byte(raw))
		msgs := drain(conn)
		require.Len(t, msgs, 1, "raw: %s", raw)
		assert.Equal(t, "alert", msgs[0]["method"])
		assert.Equal(t, "You must be logged in", msgs[0]["message"])
	}
}

func TestLoginWhileLoggedInRejected(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)
	loginAs(t, s, conn, "ana")

	s.Dispatch(context.Background(), conn,
		[]byte(`{"method":"login","username":"rita","password":"pw"}`))

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alert", msgs[0]["method"])
	assert.Equal(t, "You are already logged in", msgs[0]["message"])
	// the original binding is intact
	require.NotNil(t, conn.User)
	assert.Equal(t, "ana", conn.User.Username)
}

func TestNewGameAndJoinFlow(t *testing.T) {
	s, cr := setupServer(t)
	connA := newTestConn(t, cr)
	connB := newTestConn(t, cr)
	loginAs(t, s, connA, "ana")
	loginAs(t, s, connB, "rita")

	s.Dispatch(context.Background(), connA,
		[]byte(`{"method":"newGame","items":[{"name":"Ana"},{"name":"Rita"}],"tries":2}`))

	msgs := drain(connA)
	require.Len(t, msgs, 1)
	require.Equal(t, "newGame", msgs[0]["method"])
	code := msgs[0]["gameId"].(string)
	require.Len(t, code, 8)

	s.Dispatch(context.Background(), connA,
		[]byte(`{"method":"joinGame","gameId":"`+code+`"}`))
	msgs = drain(connA)
	require.Len(t, msgs, 1)
	assert.Equal(t, "joinGame", msgs[0]["method"])

	s.Dispatch(context.Background(), connB,
		[]byte(`{"method":"joinGame","gameId":"`+code+`"}`))
	msgs = drain(connB)
	require.Len(t, msgs, 1)
	assert.Equal(t, "joinGame", msgs[0]["method"])

	// sitting player saw the roster update plus a system notice
	methodsA := drain(connA)
	require.Len(t, methodsA, 2)
	assert.Equal(t, "updatePlayers", methodsA[0]["method"])
	assert.Equal(t, "updateChat", methodsA[1]["method"])
}

func TestNewGameRejectsTinyItemList(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)
	loginAs(t, s, conn, "ana")

	s.Dispatch(context.Background(), conn,
		[]byte(`{"method":"newGame","items":[{"name":"Ana"}],"tries":2}`))

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alert", msgs[0]["method"])
}

func TestGuessAlertCarriesAction(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)
	loginAs(t, s, conn, "ana")

	s.Dispatch(context.Background(), conn,
		[]byte(`{"method":"guess","gameId":"missing1","guess":"Ana"}`))

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "guess", msgs[0]["action"])
	assert.Equal(t, game.ErrGameNotFound.Error(), msgs[0]["message"])
}

func TestCheckRecoveryCodeFlow(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)

	code := s.Codes.Issue("ana@example.com", auth.PurposeRecover)

	s.Dispatch(context.Background(), conn,
		[]byte(`{"method":"checkRecoveryCode","recoveryCode":"`+code+`"}`))
	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "checkRecoveryCode", msgs[0]["method"])
	assert.Equal(t, true, msgs[0]["valid"])

	s.Dispatch(context.Background(), conn,
		[]byte(`{"method":"checkRecoveryCode","recoveryCode":"bogus"}`))
	msgs = drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alert", msgs[0]["method"])
}

func TestLogout(t *testing.T) {
	s, cr := setupServer(t)
	conn := newTestConn(t, cr)
	loginAs(t, s, conn, "ana")

	s.Dispatch(context.Background(), conn, []byte(`{"method":"logout","username":"ana"}`))

	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "loggedOut", msgs[0]["method"])
	assert.Nil(t, conn.User)
}
