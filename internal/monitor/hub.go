// Package monitor streams the frames sent to the ring over a websocket so the
// ring can be watched from a browser.
package monitor

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const writeWait = 200 * time.Millisecond

type Option func(*Hub)

func WithLogger(l zerolog.Logger) Option { return func(h *Hub) { h.log = l } }

// Frame is the message sent to every client. RGB holds three bytes per LED.
type Frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a display.Drawer of n pixels in a single row. Frames arriving faster
// than the configured rate are coalesced; the latest one always goes out.
type Hub struct {
	mu       sync.Mutex
	n        int
	log      zerolog.Logger
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	clients  map[*client]struct{}
	start    time.Time

	rgb     []byte
	frameID uint64
	flush   bool // a deferred broadcast is armed
	closed  bool
}

// New returns a hub for n LEDs. fps <= 0 disables throttling.
func New(n, fps int, opts ...Option) *Hub {
	lim := rate.NewLimiter(rate.Inf, 1)
	if fps > 0 {
		lim = rate.NewLimiter(rate.Limit(fps), 1)
	}
	h := &Hub{
		n:       n,
		log:     zerolog.Nop(),
		limiter: lim,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
		start:   time.Now(),
		rgb:     make([]byte, n*3),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handler serves /frames (websocket) and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", h.HandleFrames)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

func (h *Hub) String() string { return "monitor" }

// Halt publishes an all-off frame.
func (h *Hub) Halt() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.rgb {
		h.rgb[i] = 0
	}
	h.frameID++
	h.broadcastLocked()
	return nil
}

func (h *Hub) ColorModel() color.Model { return color.NRGBAModel }

func (h *Hub) Bounds() image.Rectangle { return image.Rect(0, 0, h.n, 1) }

// Draw copies the first row of src into the current frame and publishes it.
func (h *Hub) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(h.Bounds())
	h.mu.Lock()
	defer h.mu.Unlock()
	for x := r.Min.X; x < r.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		h.rgb[x*3], h.rgb[x*3+1], h.rgb[x*3+2] = c.R, c.G, c.B
	}
	h.frameID++

	if h.flush {
		return nil
	}
	res := h.limiter.Reserve()
	if d := res.Delay(); d > 0 {
		h.flush = true
		time.AfterFunc(d, func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.flush = false
			h.broadcastLocked()
		})
		return nil
	}
	h.broadcastLocked()
	return nil
}

// Close disconnects every client. Draw keeps working afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
	return nil
}

func (h *Hub) HandleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	// the current frame goes out first so a new client is never blank
	c.push(h.encodeLocked())
	h.mu.Unlock()
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("monitor client connected")

	go c.writeLoop(h.log)
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			close(c.send)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": time.Since(h.start).Seconds(),
		"count":    h.n,
		"clients":  len(h.clients),
		"est_amps": estimateCurrent(h.rgb),
	}
	h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) encodeLocked() []byte {
	b, _ := json.Marshal(Frame{
		T:       time.Now().UnixNano(),
		FrameID: h.frameID,
		RGB:     append([]byte(nil), h.rgb...),
	})
	return b
}

func (h *Hub) broadcastLocked() {
	if len(h.clients) == 0 {
		return
	}
	b := h.encodeLocked()
	for c := range h.clients {
		c.push(b)
	}
}

// push replaces a queued frame that the writer has not picked up yet.
func (c *client) push(b []byte) {
	select {
	case c.send <- b:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *client) writeLoop(log zerolog.Logger) {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
			c.conn.Close()
		}
	}
}

// estimateCurrent returns estimated amps for an rgb frame, 20mA per channel
// at full scale.
func estimateCurrent(rgb []byte) float64 {
	var sum float64
	for _, v := range rgb {
		sum += float64(v)
	}
	return sum / 255.0 * 0.020
}
