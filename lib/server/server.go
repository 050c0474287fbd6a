// Package server exposes a Shooter over HTTP.
//
//	POST /captures        capture a region, the body is {"url", "selection", "at"}
//	GET  /captures        the history of the captures, newest first
//	GET  /captures/:name  the saved png
//	GET  /events          websocket stream of the session events
//	GET  /live            MJPEG stream of the captured frames
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/history"
	"github.com/go-rod/regionshot/lib/utils"
	"github.com/gorilla/websocket"
	"github.com/tidwall/sjson"
)

// LiveQuality of the jpeg frames of the live view
const LiveQuality = 80

// Navigate the page of the shooter to the url
type Navigate func(ctx context.Context, url string) error

// Options of the server
type Options struct {
	// Dir where the Saver of the shooter writes the files
	Dir string

	// History to record the captures in, optional
	History *history.History

	// Navigate is required if a request has an url
	Navigate Navigate

	Logger utils.Logger
}

// Server of a shooter
type Server struct {
	shooter  *regionshot.Shooter
	opts     Options
	upgrader websocket.Upgrader
	engine   *gin.Engine

	// held from the navigation to the end of the capture
	busy sync.Mutex
}

// CaptureRequest body
type CaptureRequest struct {
	// URL to navigate to before the capture, the current page is used if it's empty
	URL       string               `json:"url"`
	Selection regionshot.Selection `json:"selection"`
	// At is the viewport point to find the scrolling element, the window is used if it's nil
	At *regionshot.Point `json:"at"`
}

// CaptureResponse body
type CaptureResponse struct {
	Name      string               `json:"name"`
	Selection regionshot.Selection `json:"selection"`
	Frames    int                  `json:"frames"`
	Size      int                  `json:"size"`
}

// New server for the shooter
func New(s *regionshot.Shooter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = utils.LoggerQuiet
	}

	gin.SetMode(gin.ReleaseMode)

	srv := &Server{shooter: s, opts: opts}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", srv.index)
	engine.POST("/captures", srv.capture)
	engine.GET("/captures", srv.list)
	engine.GET("/captures/:name", srv.file)
	engine.GET("/events", srv.events)
	engine.GET("/live", srv.live)

	srv.engine = engine
	return srv
}

// Handler of the server
func (srv *Server) Handler() http.Handler {
	return srv.engine
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func status(err error) int {
	switch {
	case regionshot.IsError(err, regionshot.ErrSelection):
		return http.StatusBadRequest
	case regionshot.IsError(err, regionshot.ErrSessionActive):
		return http.StatusConflict
	case regionshot.IsError(err, regionshot.ErrCanceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (srv *Server) capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	s := srv.shooter.Context(ctx)

	region, err := s.RegionAt(req.Selection, nil)
	if err != nil {
		abort(c, status(err), err)
		return
	}

	// don't navigate away while another session is using the page
	if !srv.busy.TryLock() {
		abort(c, http.StatusConflict, &regionshot.Error{Code: regionshot.ErrSessionActive})
		return
	}
	defer srv.busy.Unlock()

	if s.Active() {
		abort(c, http.StatusConflict, &regionshot.Error{Code: regionshot.ErrSessionActive})
		return
	}

	if req.URL != "" {
		if srv.opts.Navigate == nil {
			abort(c, http.StatusBadRequest, errors.New("navigation is not supported"))
			return
		}
		if err := srv.opts.Navigate(ctx, req.URL); err != nil {
			abort(c, http.StatusBadGateway, err)
			return
		}
	}

	if req.At != nil {
		region, err = s.RegionAt(req.Selection, req.At)
		if err != nil {
			abort(c, status(err), err)
			return
		}
	}

	res, err := s.Capture(region)
	if err != nil {
		abort(c, status(err), err)
		return
	}

	if srv.opts.History != nil {
		err := srv.opts.History.Record(ctx, &history.Capture{
			Name:   res.Name,
			URL:    req.URL,
			X:      res.Selection.X,
			Y:      res.Selection.Y,
			Width:  res.Selection.Width,
			Height: res.Selection.Height,
			Frames: res.Frames,
			Size:   len(res.PNG),
		})
		if err != nil {
			srv.opts.Logger.Println("[history]", err)
		}
	}

	c.JSON(http.StatusCreated, &CaptureResponse{
		Name:      res.Name,
		Selection: res.Selection,
		Frames:    res.Frames,
		Size:      len(res.PNG),
	})
}

func (srv *Server) list(c *gin.Context) {
	if srv.opts.History == nil {
		abort(c, http.StatusNotImplemented, errors.New("history is disabled"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := srv.opts.History.List(c.Request.Context(), limit)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (srv *Server) file(c *gin.Context) {
	name := c.Param("name")
	if filepath.Base(name) != name || filepath.Ext(name) != ".png" {
		abort(c, http.StatusBadRequest, errors.New("invalid file name"))
		return
	}

	p := regionshot.Dir(srv.opts.Dir).Path(name)
	if !utils.FileExists(p) {
		abort(c, http.StatusNotFound, errors.New("file not found"))
		return
	}

	c.File(p)
}

func (srv *Server) events(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// subscribe before the handshake so that no event after it is missed
	events := srv.shooter.Subscribe(ctx)

	conn, err := srv.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		srv.opts.Logger.Println("[events]", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// the client only closes the connection
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for e := range events {
		msg, err := EventJSON(e)
		if err != nil {
			srv.opts.Logger.Println("[events]", err)
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (srv *Server) live(c *gin.Context) {
	ctx := c.Request.Context()
	events := srv.shooter.Subscribe(ctx)

	c.Header("Content-Type", utils.MJPEGContentType)
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for e := range events {
		if e.State != regionshot.StateRecording || len(e.Data) == 0 {
			continue
		}

		frame, err := utils.ToJPEG(e.Data, LiveQuality)
		if err != nil {
			srv.opts.Logger.Println("[live]", err)
			continue
		}

		if err := utils.WriteMJPEGFrame(c.Writer, frame, c.Writer); err != nil {
			return
		}
	}
}

// EventJSON encodes the event for the websocket stream, the bitmap is omitted
func EventJSON(e *regionshot.Event) ([]byte, error) {
	msg := []byte(`{}`)

	set := func(path string, value interface{}) {
		if msg == nil {
			return
		}
		var err error
		if msg, err = sjson.SetBytes(msg, path, value); err != nil {
			msg = nil
		}
	}

	set("session", e.Session)
	set("state", string(e.State))
	if e.Frame > 0 {
		set("frame", e.Frame)
	}
	if e.Name != "" {
		set("name", e.Name)
	}
	if e.Err != nil {
		set("error", e.Err.Error())
	}
	set("time", e.Time.UTC().Format(time.RFC3339Nano))

	if msg == nil {
		return nil, errors.New("server: failed to encode event")
	}
	return msg, nil
}

func (srv *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>regionshot</title>
	<style>
		body { margin: 0 auto; padding: 20px; max-width: 95%; font-family: system-ui, sans-serif; }
		.panes { display: flex; gap: 2rem; }
		img { max-width: 100%; border: 1px solid #ccc; }
		pre { flex: 1; height: 80vh; overflow: auto; background: #f6f6f6; }
	</style>
</head>
<body>
	<div class="panes">
		<img src="/live" alt="live frames" />
		<pre id="events"></pre>
	</div>
	<script>
		const log = document.getElementById('events')
		const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/events')
		ws.onmessage = (e) => { log.textContent = e.data + '\n' + log.textContent }
	</script>
</body>
</html>`
