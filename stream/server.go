// Package stream serves the annotated video feed and latest tracking result
// over HTTP. It reads immutable snapshots from a Store, so a slow or stuck
// viewer can never block frame acquisition.
package stream

import (
	"bufio"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const frameInterval = 33 * time.Millisecond // ~30fps

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Face Tracker</title>
    <style>
        * { margin: 0; padding: 0; }
        body {
            background: #000;
            height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
        }
        img {
            max-width: 100vw;
            max-height: 100vh;
            object-fit: contain;
        }
    </style>
</head>
<body>
    <img src="/stream" alt="Stream">
</body>
</html>`

// Server exposes the MJPEG stream, the latest result as JSON, and a health
// endpoint.
type Server struct {
	app   *fiber.App
	store *Store
	addr  string
	runID string
	log   *logrus.Logger

	// done releases every in-flight stream writer on shutdown. An MJPEG
	// connection never goes idle on its own, so without this signal a
	// graceful shutdown would wait on attached viewers forever.
	done     chan struct{}
	doneOnce sync.Once
}

// NewServer builds the fiber app and its routes.
func NewServer(addr string, store *Store, runID string, log *logrus.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "facetrack",
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})

	s := &Server{
		app:   app,
		store: store,
		addr:  addr,
		runID: runID,
		log:   log,
		done:  make(chan struct{}),
	}

	app.Get("/", s.index)
	app.Get("/stream", s.stream)
	app.Get("/result", s.result)
	app.Get("/healthz", s.healthz)

	return s
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen() error {
	s.log.WithField("addr", s.addr).Info("stream server listening")
	return s.app.Listen(s.addr)
}

// Shutdown releases the stream writers and stops the server gracefully.
// Writers drain within one frame interval, so shutdown completes even with
// viewers attached.
func (s *Server) Shutdown() error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.app.Shutdown()
}

func (s *Server) index(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

// stream writes a multipart MJPEG body, one part per stored snapshot, until
// the client disconnects or the server shuts down.
func (s *Server) stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(s.writeStream))
	return nil
}

// writeStream is the per-connection body writer behind /stream.
func (s *Server) writeStream(w *bufio.Writer) {
	for {
		frame := s.store.Frame()
		if frame != nil {
			if _, err := fmt.Fprintf(w,
				"--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
				len(frame)); err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client went away.
				return
			}
		}

		select {
		case <-s.done:
			return
		case <-time.After(frameInterval):
		}
	}
}

func (s *Server) result(c *fiber.Ctx) error {
	return c.JSON(s.store.Result())
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"run_id": s.runID,
		"frames": s.store.Frames(),
	})
}
