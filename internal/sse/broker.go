// Package sse streams inquiry changes to dashboards over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bluecheck/inquiries/internal/clock"
	"github.com/bluecheck/inquiries/internal/models"
)

// EventStatsUpdated tells listeners to refetch /api/contact/stats.
const EventStatsUpdated = "stats.updated"

const clientBuffer = 64

// Event is one SSE frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inquiryData struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
}

type inquiryEvent struct {
	kind string
	data inquiryData
}

// Broker fans events out to connected clients.
//
// A single loop goroutine owns the client set and the stats throttle; every
// public method talks to it over channels.
type Broker struct {
	statsEvery time.Duration
	keepAlive  time.Duration
	clock      clock.Clock
	logger     *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	inquiryCh     chan inquiryEvent
	countCh       chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithClock sets the time source used for throttling.
func WithClock(c clock.Clock) Option {
	return func(b *Broker) { b.clock = c }
}

// WithKeepAlive sets how often idle streams get a comment frame.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// NewBroker starts a broker that emits stats.updated at most once per statsThrottle.
func NewBroker(statsThrottle time.Duration, opts ...Option) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}
	b := &Broker{
		statsEvery:    statsThrottle,
		keepAlive:     25 * time.Second,
		clock:         clock.NewSystem(),
		logger:        slog.Default(),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		inquiryCh:     make(chan inquiryEvent, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStats time.Time

	send := func(ev Event) {
		frame, err := encode(ev)
		if err != nil {
			b.logger.Error("encode sse event", slog.String("type", ev.Type), slog.String("error", err.Error()))
			return
		}
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			send(ev)

		case ie := <-b.inquiryCh:
			send(Event{Type: ie.kind, Data: ie.data})
			if now := b.clock.Now(); now.Sub(lastStats) >= b.statsEvery {
				lastStats = now
				send(Event{Type: EventStatsUpdated, Data: struct{}{}})
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

func encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", ev.Type, payload), nil
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishInquiryEvent broadcasts an inquiry change followed by a throttled
// stats.updated.
func (b *Broker) PublishInquiryEvent(kind, id string, status models.Status) {
	if b.closed.Load() {
		return
	}
	select {
	case b.inquiryCh <- inquiryEvent{kind: kind, data: inquiryData{ID: id, Status: status}}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
