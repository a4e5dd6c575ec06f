package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// handleStream upgrades to a websocket, sends the current view and then one
// view per committed update until either side goes away.
func (sc *ServerCommunicator) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := sc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade stream")
		return
	}
	defer conn.Close()

	views, unsubscribe := sc.engine.Subscribe()
	defer unsubscribe()

	// The renderer never sends anything, reading only detects a close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	view, err := sc.engine.GetView(r.Context())
	if err != nil {
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Debug().Err(err).Msg("failed to set stream deadline")
		return
	}
	if err := conn.WriteJSON(view); err != nil {
		return
	}
	log.Debug().Msg("stream opened")

	for {
		select {
		case view, ok := <-views:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Msg("failed to set stream deadline")
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				log.Debug().Err(err).Msg("stream write failed")
				return
			}
		case <-gone:
			log.Debug().Msg("stream closed by peer")
			return
		case <-sc.closing:
			return
		}
	}
}
