package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected remote=%s", r.RemoteAddr)
	session := newSession(s, conn)
	session.Send("connected")
	go session.readLoop()
}
