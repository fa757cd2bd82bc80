// Package dashboard serves published documents over HTTP and pushes new
// ones to browsers over a websocket. A Server is a sink.Sink, so it is
// attached to an inspector with RegisterSink.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chosenoffset/refscope/pkg/refscope/docblock"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/regex"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second

	maxRequestBytes = 64 << 10
	maxPatternLen   = 5000
)

// ErrBacklogFull is returned by Deliver when the broadcast loop has fallen
// behind. The document is still kept in the history.
var ErrBacklogFull = errors.New("dashboard: broadcast backlog full")

type Server struct {
	addr       string
	server     *http.Server
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	clientsMu  sync.RWMutex
	maxClients int

	documents chan queued
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	// history holds sink.Document values, oldest first. delivered counts
	// every document ever recorded.
	history    *queue.Queue
	maxHistory int
	delivered  uint64
	mu         sync.RWMutex

	metrics *metrics.Collector
	logger  *slog.Logger
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	// seen is the delivery count covered by the history this client got.
	seen uint64
}

type queued struct {
	n   uint64
	doc sink.Document
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

type Option func(*Server)

// WithAddr sets the listen address. The default is ":7070".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithMetrics instruments every route and serves the collector on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHistory bounds how many documents are kept for the API and for
// clients that connect late.
func WithHistory(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

func WithMaxClients(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		addr:       ":7070",
		clients:    make(map[*client]bool),
		maxClients: 100,
		documents:  make(chan queued, 100),
		stop:       make(chan struct{}),
		history:    queue.New(),
		maxHistory: 500,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     sameOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

// sameOrigin accepts requests without an Origin header, same-host origins
// and localhost.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Handler returns the dashboard routes and starts the broadcast loop.
func (s *Server) Handler() http.Handler {
	s.startOnce.Do(func() { go s.broadcast() })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.metrics.Middleware("/", s.handleIndex))
	mux.HandleFunc("GET /api/documents", s.metrics.Middleware("/api/documents", s.handleDocuments))
	mux.HandleFunc("GET /api/documents/{id}", s.metrics.Middleware("/api/documents/{id}", s.handleDocument))
	mux.HandleFunc("POST /api/validate/regex", s.metrics.Middleware("/api/validate/regex", s.handleRegex))
	mux.HandleFunc("POST /api/docblock", s.metrics.Middleware("/api/docblock", s.handleDocblock))
	mux.HandleFunc("GET /api/stats", s.metrics.Middleware("/api/stats", s.handleStats))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("/ws", s.metrics.Middleware("/ws", s.handleWebSocket))
	return mux
}

// Start serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop closes websocket clients and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Deliver records doc and queues it for connected clients.
func (s *Server) Deliver(doc sink.Document) error {
	s.mu.Lock()
	s.history.Add(doc)
	for s.history.Length() > s.maxHistory {
		s.history.Remove()
	}
	s.delivered++
	n := s.delivered
	s.mu.Unlock()

	select {
	case s.documents <- queued{n: n, doc: doc}:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Documents returns the kept history, oldest first.
func (s *Server) Documents() []sink.Document {
	docs, _ := s.snapshot()
	return docs
}

// snapshot returns the kept history with the delivery count it covers.
func (s *Server) snapshot() ([]sink.Document, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]sink.Document, s.history.Length())
	for i := range docs {
		docs[i] = s.history.Get(i).(sink.Document)
	}
	return docs, s.delivered
}

// Document finds a kept document by ID.
func (s *Server) Document(id uuid.UUID) (sink.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := s.history.Length() - 1; i >= 0; i-- {
		if doc := s.history.Get(i).(sink.Document); doc.ID == id {
			return doc, true
		}
	}
	return sink.Document{}, false
}

// Clients reports the number of connected websocket clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"data":   data,
	})
}

type summary struct {
	ID         uuid.UUID `json:"id"`
	Sequence   uint64    `json:"sequence"`
	Format     string    `json:"format"`
	Expression string    `json:"expression,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Size       int       `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleDocuments lists document summaries, newest last. Query parameters:
// tag filters, limit keeps the newest n.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	out := []summary{}
	for _, doc := range s.Documents() {
		if tag != "" && !slices.Contains(doc.Tags, tag) {
			continue
		}
		out = append(out, summary{
			ID:         doc.ID,
			Sequence:   doc.Sequence,
			Format:     doc.Format,
			Expression: doc.Expression,
			Tags:       doc.Tags,
			Size:       len(doc.Body),
			Timestamp:  doc.Timestamp,
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid document id", http.StatusBadRequest)
		return
	}
	doc, ok := s.Document(id)
	if !ok {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("raw") == "1" {
		ct := "text/plain; charset=utf-8"
		switch doc.Format {
		case "html":
			ct = "text/html; charset=utf-8"
		case "events":
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.Write([]byte(doc.Body))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type RegexRequest struct {
	Pattern string `json:"pattern"`
	// Bare patterns are tokenized without the delimiter check.
	Bare bool `json:"bare"`
}

type TokenView struct {
	Literal  string `json:"literal"`
	Class    string `json:"class"`
	Position int    `json:"position"`
}

type RegexResult struct {
	Valid  bool        `json:"valid"`
	Tokens []TokenView `json:"tokens,omitempty"`
	Error  string      `json:"error,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

func (s *Server) handleRegex(w http.ResponseWriter, r *http.Request) {
	var req RegexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if req.Pattern == "" {
		http.Error(w, "Pattern is required", http.StatusBadRequest)
		return
	}
	if len(req.Pattern) > maxPatternLen {
		http.Error(w, fmt.Sprintf("Pattern exceeds maximum length of %d characters", maxPatternLen), http.StatusBadRequest)
		return
	}

	split := regex.Split
	if req.Bare {
		split = regex.Tokenize
	}
	tokens, err := split(req.Pattern)
	if err != nil {
		res := RegexResult{Error: err.Error()}
		var se *regex.SyntaxError
		if errors.As(err, &se) {
			res.Offset = se.Offset
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	res := RegexResult{Valid: true, Tokens: make([]TokenView, len(tokens))}
	for i, tok := range tokens {
		res.Tokens[i] = TokenView{Literal: tok.Literal, Class: tok.Class(), Position: tok.Position}
	}
	writeJSON(w, http.StatusOK, res)
}

type DocblockRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) handleDocblock(w http.ResponseWriter, r *http.Request) {
	var req DocblockRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, docblock.Parse(req.Comment))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Snapshot()
	if err != nil {
		s.logger.Error("failed to build stats", "error", err)
		http.Error(w, "Failed to gather metrics", http.StatusInternalServerError)
		return
	}
	s.mu.RLock()
	kept := s.history.Length()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":   snap,
		"documents": kept,
		"clients":   s.Clients(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.Clients() >= s.maxClients {
		http.Error(w, "Maximum clients reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	if err := s.join(c); err != nil {
		return
	}
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Debug("websocket read failed", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.stop:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// join sends c the history and registers it for live documents. Both
// happen under clientsMu so no broadcast reaches c before its history;
// documents the history already covers are skipped for c afterwards.
func (s *Server) join(c *client) error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	docs, seen := s.snapshot()
	data, err := json.Marshal(map[string]any{"type": "history", "data": docs})
	if err != nil {
		return err
	}
	if err := c.write(websocket.TextMessage, data); err != nil {
		return err
	}
	c.seen = seen
	s.clients[c] = true
	return nil
}

func (s *Server) broadcast() {
	for {
		select {
		case q := <-s.documents:
			s.broadcastMessage(q.n, map[string]any{
				"type": "document",
				"data": q.doc,
			})
		case <-s.stop:
			return
		}
	}
}

// broadcastMessage sends message to every client whose history does not
// already hold delivery n.
func (s *Server) broadcastMessage(n uint64, message any) {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		if c.seen < n {
			clients = append(clients, c)
		}
	}
	s.clientsMu.RUnlock()
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("failed to encode broadcast", "error", err)
		return
	}

	var failed []*client
	for _, c := range clients {
		if err := c.write(websocket.TextMessage, data); err != nil {
			c.conn.Close()
			failed = append(failed, c)
		}
	}
	if len(failed) > 0 {
		s.clientsMu.Lock()
		for _, c := range failed {
			delete(s.clients, c)
		}
		s.clientsMu.Unlock()
	}
}
