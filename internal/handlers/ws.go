package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades the connection, registers it and runs the read loop
// until the client goes away. Every inbound message is processed to
// completion, including the broadcasts it triggers, before the next one is
// read.
func WSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // tighten in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := s.Conns.Register(cancel)
		logger.WithFields(logrus.Fields{
			"conn":   conn.ID,
			"remote": r.RemoteAddr,
		}).Info("websocket connected")

		go writePump(ctx, c, conn, logger)

		readPump(ctx, c, conn, s, logger)

		// readPump exited: tear down the session and forfeit any match the
		// bound identity was in.
		identity := s.Conns.Unregister(conn.ID)
		if identity != nil {
			s.Games.HandleDisconnect(identity.Username)
		}
		logger.WithField("conn", conn.ID).Info("websocket disconnected")
	}
}

func readPump(ctx context.Context, c *websocket.Conn, conn *Conn, s *Server, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if strings.Contains(err.Error(), "context canceled") {
				return
			}
			logger.WithField("conn", conn.ID).Warnf("read error: %v", err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		s.Dispatch(ctx, conn, data)
	}
}

func writePump(ctx context.Context, c *websocket.Conn, conn *Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.WithField("conn", conn.ID).Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithField("conn", conn.ID).Warnf("write error: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithField("conn", conn.ID).Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
