package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/plus3/objectlab/scene"
)

const (
	replyTimeout = 5 * time.Second
	writeTimeout = 2 * time.Second
	maxMessage   = 1 << 20
)

var errReplyTimeout = errors.New("command was not executed in time")

// Intake accepts JSON commands over websocket connections and feeds them to a queue.
// Each message is answered with the command's Result once the loop has executed it.
type Intake struct {
	queue    *scene.Queue
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewIntake(queue *scene.Queue, log *slog.Logger) *Intake {
	return &Intake{
		queue: queue,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Handler returns the HTTP handler serving the /commands endpoint.
func (in *Intake) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/commands", in.serveCommands)
	return mux
}

// Listen serves the intake on addr until ctx is cancelled.
func (in *Intake) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: in.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	in.log.Info("command intake listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (in *Intake) serveCommands(w http.ResponseWriter, r *http.Request) {
	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		in.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	remote := conn.RemoteAddr().String()
	in.log.Debug("intake client connected", "remote", remote)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				in.log.Debug("intake read failed", "remote", remote, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		res := in.submit(r.Context(), data)
		if res.Err != nil {
			in.log.Info("intake command failed", "remote", remote, "type", res.Type, "error", res.Err)
		}
		out, err := json.Marshal(res)
		if err != nil {
			in.log.Error("encode result", "error", err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			in.log.Debug("intake write failed", "remote", remote, "error", err)
			return
		}
	}
}

// submit decodes one message, queues it and waits for the loop to execute it.
func (in *Intake) submit(ctx context.Context, data []byte) scene.Result {
	cmd, err := scene.DecodeCommand(data)
	if err != nil {
		return scene.Result{Type: "invalid", Err: err}
	}

	done := make(chan scene.Result, 1)
	in.queue.Submit(cmd, func(res scene.Result) { done <- res })

	timer := time.NewTimer(replyTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res
	case <-timer.C:
		return scene.Result{Type: cmd.CommandType(), Err: errReplyTimeout}
	case <-ctx.Done():
		return scene.Result{Type: cmd.CommandType(), Err: ctx.Err()}
	}
}
