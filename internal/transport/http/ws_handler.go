package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"applicant-assessment-service/internal/app"
	"applicant-assessment-service/internal/domain"
)

type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	Index  int    `json:"index"`
	Letter string `json:"letter"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS upgrades the request and streams snapshots of one session: every
// tick and transition arrives as a "snapshot" message. Commands sent by the
// client are applied to the session; their effect comes back through the stream.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// unblock the reader
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					// session discarded; unblock the reader
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.dispatch(r, sessionID, inbound); ok {
			if !enqueue(send, writerDone, reply) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer. It reports false once the writer has exited.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// dispatch applies one client command. It returns a message only when the
// client needs more than the snapshot the session broadcasts.
func (h *WSHandler) dispatch(r *http.Request, sessionID string, in inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	var err error
	switch in.Type {
	case "answer":
		var payload wsAnswerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}, true
		}
		_, err = h.service.Answer(ctx, sessionID, payload.Index, payload.Letter)
	case "start":
		_, err = h.service.Start(ctx, sessionID)
	case "advance":
		_, err = h.service.Advance(ctx, sessionID)
	case "retreat":
		_, err = h.service.Retreat(ctx, sessionID)
	case "pause":
		_, err = h.service.Pause(ctx, sessionID)
	case "resume":
		_, err = h.service.Resume(ctx, sessionID)
	case "submit":
		outcome, err := h.service.Submit(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrResultNotSaved) {
			return errorMessage(err), true
		}
		if err != nil {
			return outboundMessage[any]{Type: "notSaved", Payload: outcome}, true
		}
		return outboundMessage[any]{Type: "submitted", Payload: outcome}, true
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}, true
	}
	if err != nil {
		return errorMessage(err), true
	}
	return outboundMessage[any]{}, false
}
