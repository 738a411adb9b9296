package preview

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"facearchiver/internal/logger"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>facearchiver preview</title></head>
<body style="margin:0;background:#111">
<img id="frame" style="max-width:100%">
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  document.getElementById("frame").src = "data:image/jpeg;base64," + msg.image;
};
</script>
</body>
</html>`

type frameMessage struct {
	Image string `json:"image"`
}

// Server exposes the annotated frame to browsers over websocket, as a debug
// preview for environments without a display.
type Server struct {
	addr     string
	hub      *Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

func NewServer(addr string, logger *logger.Logger) *Server {
	s := &Server{
		addr:   addr,
		hub:    NewHub(logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	go s.hub.Run()
	return s
}

// Publish queues a JPEG frame for delivery to current and future clients.
func (s *Server) Publish(jpeg []byte) error {
	msg, err := json.Marshal(frameMessage{Image: base64.StdEncoding.EncodeToString(jpeg)})
	if err != nil {
		return fmt.Errorf("encode preview message: %w", err)
	}
	s.hub.Broadcast(msg)
	return nil
}

// ListenAndServe runs the hub and blocks serving preview clients, the
// headless stand-in for the blocking key-press preview window.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexPage)
	})

	s.logger.Info("Preview available on http://%s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Preview upgrade error: %v", err)
		return
	}

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
