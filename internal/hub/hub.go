// Package hub runs every scenario runner and the zone controller and fans
// their state out to websocket clients.
package hub

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"drone-spoof/internal/metrics"
	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

const (
	ZoneStream       = "zone"
	simStreamPrefix  = "sim/"
	defaultSendQueue = 64
	broadcastQueue   = 256
)

var ErrUnknownCommand = errors.New("unknown command")

func SimStream(name string) string {
	return simStreamPrefix + name
}

type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Clock   sim.Clock
	// SendBuffer is the per-client frame queue; a client that lets it fill
	// up is disconnected.
	SendBuffer int
}

type outbound struct {
	stream string
	frames *frames
}

type Hub struct {
	logger     *log.Logger
	metrics    *metrics.Metrics
	sendBuffer int
	upgrader   websocket.Upgrader

	runners map[string]*sim.Runner
	zone    *zone.Controller

	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	done       chan struct{}

	// clients is only touched by the Run goroutine.
	clients map[string]map[*client]bool
}

func New(catalog map[string]*sim.Scenario, zoneCfg zone.Config, opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendQueue
	}
	h := &Hub{
		logger:     opts.Logger.With("component", "hub"),
		metrics:    opts.Metrics,
		sendBuffer: opts.SendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		runners:    make(map[string]*sim.Runner, len(catalog)),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, broadcastQueue),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*client]bool),
	}
	for name, sc := range catalog {
		h.runners[name] = sim.NewRunner(sc, opts.Clock, opts.Logger, sim.Hooks{
			AfterStep: func(prev, next sim.State) { h.onSimStep(name, prev, next) },
		})
	}
	h.zone = zone.NewController(zoneCfg, opts.Clock, opts.Logger, h.onZoneChange)
	return h
}

func (h *Hub) Runner(name string) (*sim.Runner, bool) {
	r, ok := h.runners[name]
	return r, ok
}

func (h *Hub) Names() []string {
	names := make([]string, 0, len(h.runners))
	for name := range h.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *Hub) Zone() *zone.Controller {
	return h.zone
}

// Run starts every runner and the zone controller and serves client
// registration and fan-out until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, r := range h.runners {
		wg.Add(1)
		go func(r *sim.Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				h.logger.Error("runner exited", "scenario", r.Scenario().Name, "err", err)
			}
		}(r)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.zone.Run(ctx); err != nil {
			h.logger.Error("zone controller exited", "err", err)
		}
	}()

	h.logger.Info("hub started", "scenarios", h.Names())
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			wg.Wait()
			return nil
		case c := <-h.register:
			set, ok := h.clients[c.stream]
			if !ok {
				set = make(map[*client]bool)
				h.clients[c.stream] = set
			}
			set[c] = true
			h.metrics.Clients.WithLabelValues(c.stream).Inc()
			h.logger.Info("client connected", "client", c.id, "stream", c.stream, "format", c.format)
		case c := <-h.unregister:
			if h.drop(c) {
				h.logger.Info("client disconnected", "client", c.id, "stream", c.stream)
			}
		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

// deliver never blocks: a client whose queue is full loses the frame and
// its connection.
func (h *Hub) deliver(out outbound) {
	for c := range h.clients[out.stream] {
		data, err := out.frames.get(c.format)
		if err != nil {
			h.logger.Error("encode frame", "stream", out.stream, "format", c.format, "err", err)
			continue
		}
		select {
		case c.send <- data:
		default:
			h.metrics.DroppedFrames.Inc()
			h.logger.Warn("client too slow, disconnecting", "client", c.id, "stream", c.stream)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) bool {
	set := h.clients[c.stream]
	if !set[c] {
		return false
	}
	delete(set, c)
	close(c.send)
	h.metrics.Clients.WithLabelValues(c.stream).Dec()
	return true
}

func (h *Hub) closeAll() {
	for _, set := range h.clients {
		for c := range set {
			h.drop(c)
		}
	}
}

func (h *Hub) publish(stream, kind string, data any) {
	out := outbound{stream: stream, frames: &frames{v: Envelope{Type: kind, Stream: stream, Data: data}}}
	select {
	case h.broadcast <- out:
	default:
		h.metrics.DroppedFrames.Inc()
	}
}

func (h *Hub) onSimStep(name string, prev, next sim.State) {
	if next.ElapsedMs > prev.ElapsedMs {
		h.metrics.Ticks.WithLabelValues(name).Inc()
	}
	if next.Phase > prev.Phase {
		for _, rule := range h.runners[name].Scenario().Rules {
			if rule.Phase > prev.Phase && rule.Phase <= next.Phase {
				h.metrics.PhaseTransitions.WithLabelValues(name, rule.Phase.String()).Inc()
			}
		}
	}
	for _, fp := range next.Footprints.Since(prev.Footprints.Len()) {
		h.metrics.Footprints.WithLabelValues(name, string(fp.Kind)).Inc()
	}
	h.publish(SimStream(name), "sim", next.View())
}

func (h *Hub) onZoneChange(prev, next zone.Session) {
	for _, fp := range next.Footprints.Since(prev.Footprints.Len()) {
		h.metrics.Footprints.WithLabelValues(ZoneStream, string(fp.Kind)).Inc()
	}
	h.publish(ZoneStream, "zone", next.View(h.zone.Config()))
}

// ServeSim upgrades the request into a client of the named scenario.
// Text frames {"type":"play"|"pause"|"toggle"|"reset"} drive the runner.
func (h *Hub) ServeSim(w http.ResponseWriter, r *http.Request, name string) error {
	runner, ok := h.runners[name]
	if !ok {
		return sim.ErrUnknownScenario
	}
	s, err := runner.Snapshot(r.Context())
	if err != nil {
		return err
	}
	handle := func(ctx context.Context, cmd Command) error {
		var err error
		switch cmd.Type {
		case "play":
			_, err = runner.Play(ctx)
		case "pause":
			_, err = runner.Pause(ctx)
		case "toggle":
			_, err = runner.Toggle(ctx)
		case "reset":
			_, err = runner.Reset(ctx)
		default:
			err = ErrUnknownCommand
		}
		return err
	}
	return h.serve(w, r, SimStream(name), "sim", s.View(), handle)
}

// ServeZone upgrades the request into a client of the zone session.
// Commands are {"type":"move","dx":1,"dy":0}, {"type":"key","key":"w"}
// and {"type":"reset"}.
func (h *Hub) ServeZone(w http.ResponseWriter, r *http.Request) error {
	s, err := h.zone.Snapshot(r.Context())
	if err != nil {
		return err
	}
	handle := func(ctx context.Context, cmd Command) error {
		var err error
		switch cmd.Type {
		case "move":
			_, err = h.zone.Move(ctx, cmd.DX, cmd.DY)
		case "key":
			_, err = h.zone.Key(ctx, cmd.Key)
		case "reset":
			_, err = h.zone.Reset(ctx)
		default:
			err = ErrUnknownCommand
		}
		return err
	}
	return h.serve(w, r, ZoneStream, "zone", s.View(h.zone.Config()), handle)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, stream, kind string, initial any, handle func(context.Context, Command) error) error {
	format := ParseFormat(r.URL.Query().Get("format"))
	first, err := encode(format, Envelope{Type: kind, Stream: stream, Data: initial})
	if err != nil {
		return err
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", "stream", stream, "err", err)
		return nil
	}
	c := &client{
		id:     uuid.NewString(),
		stream: stream,
		format: format,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
	}
	c.send <- first

	select {
	case h.register <- c:
	case <-h.done:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return nil
	}
	go c.writePump()
	go c.readPump(h, handle)
	return nil
}

func (h *Hub) unregisterClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
