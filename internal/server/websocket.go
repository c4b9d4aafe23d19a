package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/session"
)

// inbound is one frame from a websocket client.
type inbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Gesture string `json:"gesture,omitempty"`
	On      *bool  `json:"on,omitempty"`
	Command string `json:"command,omitempty"`
	Arg     int    `json:"arg,omitempty"`
}

// serveWS streams effects to the client and feeds its transcripts and
// gestures into the user's runtime.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	rt, ok := s.userRuntime(w, r)
	if !ok {
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error("accept websocket for %s: %v", rt.userID, err)
		return
	}
	defer func() {
		if err := ws.Close(websocket.StatusNormalClosure, "bye"); err != nil {
			s.log.Debug("close websocket for %s: %v", rt.userID, err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames, unsubscribe := rt.hub.subscribe()
	defer unsubscribe()
	s.log.Info("websocket connected for %s (%d clients)", rt.userID, rt.hub.clients())

	if err := rt.attach(ctx); err != nil {
		s.log.Warn("attach session for %s: %v", rt.userID, err)
	}
	if v, err := rt.ctrl.Snapshot(ctx); err == nil {
		if err := wsjson.Write(ctx, ws, outbound{Type: "session", Listening: boolPtr(v.Listening), Status: v.Session.Status.String()}); err != nil {
			return
		}
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case o, ok := <-frames:
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, ws, o); err != nil {
					s.log.Debug("websocket write for %s: %v", rt.userID, err)
					return
				}
			}
		}
	}()

	for {
		var in inbound
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				s.log.Debug("websocket closed for %s", rt.userID)
			} else {
				s.log.Warn("websocket read for %s: %v", rt.userID, err)
			}
			return
		}
		if err := s.handleInbound(rt, in); err != nil {
			s.log.Debug("inbound %s for %s: %v", in.Type, rt.userID, err)
			rt.hub.broadcast(outbound{Type: "error", Text: err.Error()})
		}
	}
}

func (s *Server) handleInbound(rt *runtime, in inbound) error {
	switch in.Type {
	case "transcript":
		rt.transcript(in.Text)
	case "speech_error":
		rt.speechError(&domain.SpeechError{Kind: domain.SpeechErrorKindFromString(in.Error), Message: in.Text})
	case "speech_end":
		rt.speechEnd()
	case "gesture":
		g, err := gesture.ParseGesture(in.Gesture)
		if err != nil {
			return err
		}
		rt.disp.Dispatch(g)
	case "listen":
		want := in.On == nil || *in.On
		if want == rt.rec.Listening() {
			return nil
		}
		if !rt.ctrl.Post(session.SourceAPI, domain.ToggleVoice{}) {
			return domain.ErrControllerStopped
		}
	case "wake":
		rt.rec.Wake()
	case "command":
		cmd, err := s.parseCommand(commandRequest{Command: in.Command, Arg: in.Arg})
		if err != nil {
			return err
		}
		if !rt.ctrl.Post(session.SourceAPI, cmd) {
			return domain.ErrControllerStopped
		}
	default:
		return domain.ErrUnknownCommand
	}
	return nil
}
