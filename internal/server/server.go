package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/sim"
)

const (
	DefaultHistoryTail = 500
	sendBuffer         = 64
	writeWait          = 10 * time.Second
)

type Config struct {
	Options      sim.Options
	Model        dynamo.ModelKind
	TickInterval time.Duration
	// HistoryTail bounds the history carried by each snapshot frame.
	HistoryTail int
}

type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu      sync.Mutex
	clients map[string]*client
}

func New(cfg Config, log *logrus.Entry) *Server {
	if cfg.HistoryTail <= 0 {
		cfg.HistoryTail = DefaultHistoryTail
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[string]*client),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Sessions returns the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves until ctx is cancelled, then shuts down and
// stops every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	s.log.WithField("sessions", s.Sessions()).Info("closing sessions")
	s.mu.Lock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	s.log.Info("server stopped")
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	kind := s.cfg.Model
	if q := r.URL.Query().Get("model"); q != "" {
		k, err := dynamo.ParseModelKind(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = k
	}
	sess, err := sim.NewModel(kind, s.cfg.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	log := s.log.WithField("remote", r.RemoteAddr)
	runner := sim.NewRunner(sess, s.cfg.TickInterval, log)
	runner.HistoryTail = s.cfg.HistoryTail

	c := &client{
		conn:   conn,
		runner: runner,
		send:   make(chan Reply, sendBuffer),
		log:    log.WithField("session", runner.ID()),
	}
	s.register(c)
	defer s.unregister(c)

	c.serve()
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.runner.ID()] = c
	n := len(s.clients)
	s.mu.Unlock()
	c.log.WithField("sessions", n).Info("client connected")
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.runner.ID())
	n := len(s.clients)
	s.mu.Unlock()
	c.log.WithField("sessions", n).Info("client disconnected")
}

type client struct {
	conn   *websocket.Conn
	runner *sim.Runner
	send   chan Reply
	log    *logrus.Entry
}

// serve runs the connection until the peer goes away. The runner is
// stopped before the send channel is closed so no publish can race it.
func (c *client) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.writeLoop()
		close(done)
	}()

	unsubscribe := c.runner.Subscribe(func(s sim.Snapshot) { c.enqueue(snapshotReply(s)) })
	c.enqueue(snapshotReply(c.runner.Snapshot()))

	c.readLoop(ctx)

	cancel()
	unsubscribe()
	c.runner.Close()
	close(c.send)
	<-done
	c.conn.Close()
}

func (c *client) enqueue(r Reply) {
	select {
	case c.send <- r:
	default:
		c.log.WithField("type", r.Type).Debug("send buffer full, frame dropped")
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read failed")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.enqueue(errorReply("", fmt.Errorf("%w: %v", ErrBadCommand, err)))
			continue
		}
		if err := c.handle(ctx, cmd); err != nil {
			c.log.WithError(err).WithField("cmd", cmd.Cmd).Debug("command rejected")
			c.enqueue(errorReply(cmd.Cmd, err))
		}
	}
}

// handle applies cmd to the runner. Commands that change nothing still
// answer with the current snapshot.
func (c *client) handle(ctx context.Context, cmd Command) error {
	switch cmd.Cmd {
	case CmdStart:
		if !c.runner.Start(ctx) {
			c.enqueue(snapshotReply(c.runner.Snapshot()))
		}
		return nil
	case CmdPause:
		running := c.runner.Snapshot().Running
		c.runner.Pause()
		if !running {
			c.enqueue(snapshotReply(c.runner.Snapshot()))
		}
		return nil
	case CmdReset:
		return c.runner.Reset()
	case CmdSetParam:
		if cmd.Name == "" || cmd.Value == nil {
			return fmt.Errorf("%w: set_param needs name and value", ErrBadCommand)
		}
		return c.runner.SetParameter(cmd.Name, *cmd.Value)
	case CmdSetParams:
		if len(cmd.Params) == 0 {
			return fmt.Errorf("%w: set_params needs params", ErrBadCommand)
		}
		return c.runner.SetAllParameters(cmd.Params)
	case CmdSetModel:
		kind, err := dynamo.ParseModelKind(cmd.Model)
		if err != nil {
			return err
		}
		return c.runner.SetModel(kind)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Cmd)
}

func (c *client) writeLoop() {
	for r := range c.send {
		data, err := json.Marshal(r)
		if err != nil {
			c.log.WithError(err).Error("encode frame")
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.log.WithError(err).Warn("websocket write failed")
			c.conn.Close()
			// drain so publishers never block on a dead peer
			for range c.send {
			}
			return
		}
	}
}
