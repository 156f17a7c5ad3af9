package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/auth"
	"github.com/D34dlyK1ss/whoisit/internal/game"
	"github.com/D34dlyK1ss/whoisit/internal/mailer"
)

// Server wires the connection registry, game registry and account
// collaborators together for the websocket dispatcher. All process state
// hangs off this struct; nothing is reached through package globals except
// the database pool.
type Server struct {
	Log    *logrus.Logger
	Conns  *ConnRegistry
	Games  *game.Registry
	Codes  *auth.CodeStore
	Mailer mailer.Mailer
}

// NewServer builds a Server around an existing connection registry and
// game registry.
func NewServer(log *logrus.Logger, conns *ConnRegistry, games *game.Registry, codes *auth.CodeStore, m mailer.Mailer) *Server {
	return &Server{
		Log:    log,
		Conns:  conns,
		Games:  games,
		Codes:  codes,
		Mailer: m,
	}
}

// PingHandler answers health checks.
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// alert builds the error/notice payload tied to the action that triggered
// it. Validation rejections always go back to the origin connection only.
func alert(isError bool, action, message string) map[string]interface{} {
	return map[string]interface{}{
		"method":  "alert",
		"error":   isError,
		"action":  action,
		"message": message,
	}
}
