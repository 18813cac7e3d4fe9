package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/middleware"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/service"
	ws "github.com/varunsiravuri/exam-platform/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the real-time exam stream. Every REST operation has a
// WebSocket twin here; in addition the server pushes timer and proctoring
// notifications over the same connection.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=...
// Upgrades to WebSocket for real-time exam interaction and server pushes.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.StudentID

	// A stream without a live session has nothing to drive.
	if _, err := h.sessions.Snapshot(studentID); err != nil {
		ws.WriteError(conn, "EXAM_NOT_ACTIVE", "no active exam session")
		return
	}

	wsLog := h.log.With().Str("student_id", studentID).Logger()
	wsLog.Info().Msg("Candidate connected")

	// Writes come from two goroutines (reader acks, event pump); the
	// connection allows one concurrent writer.
	var writeMu sync.Mutex
	write := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := ws.WriteTyped(conn, v); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
		}
	}

	pumpCtx, cancelPump := context.WithCancel(c.Request.Context())
	defer cancelPump()
	go h.pumpEvents(pumpCtx, studentID, write, wsLog)

	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		h.sessions.Touch(studentID)
		h.dispatch(c.Request.Context(), studentID, raw, write, wsLog)
	}
}

// pumpEvents forwards server-initiated session events to the client.
func (h *WSHandler) pumpEvents(ctx context.Context, studentID string, write func(interface{}), wsLog zerolog.Logger) {
	events := h.sessions.Events(studentID)
	if events == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			write(ws.NotificationResponse{Event: ws.EventNotification, Type: ev.Type, Data: ev.Data})
			// Terminal events end the stream's usefulness; the client
			// disconnects after rendering them.
			if ev.Type == service.EventTimeUp || ev.Type == service.EventInactivity {
				wsLog.Info().Str("event", ev.Type).Msg("Terminal event pushed")
			}
		}
	}
}

// dispatch parses one client frame and applies it to the session.
func (h *WSHandler) dispatch(ctx context.Context, studentID string, raw []byte, write func(interface{}), wsLog zerolog.Logger) {
	var envelope ws.RequestEnvelope
	if err := unmarshal(raw, &envelope); err != nil {
		write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed frame"})
		return
	}

	switch envelope.Action {
	case ws.ActionPing:
		write(ws.PongResponse{Event: ws.EventPong})

	case ws.ActionSync:
		snapshot, err := h.sessions.Snapshot(studentID)
		if err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Code: "EXAM_NOT_ACTIVE", Error: err.Error()})
			return
		}
		write(ws.StateResponse{Event: ws.EventState, State: snapshot})

	case ws.ActionAnswer:
		var req ws.AnswerRequest
		if err := unmarshal(raw, &req); err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed answer frame"})
			return
		}
		err := h.sessions.Answer(ctx, studentID, &model.AnswerRequest{
			QuestionID:     req.QuestionID,
			SelectedOption: req.SelectedOption,
		})
		h.ack(studentID, ws.ActionAnswer, req.QuestionID, err, write)

	case ws.ActionMark:
		var req ws.MarkRequest
		if err := unmarshal(raw, &req); err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed mark frame"})
			return
		}
		err := h.sessions.Mark(ctx, studentID, &model.MarkRequest{
			QuestionID: req.QuestionID,
			Marked:     req.Marked,
		})
		h.ack(studentID, ws.ActionMark, req.QuestionID, err, write)

	case ws.ActionNavigate:
		var req ws.NavigateRequest
		if err := unmarshal(raw, &req); err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed navigate frame"})
			return
		}
		if err := h.sessions.Navigate(studentID, req.Index); err != nil {
			write(sessionError(err))
			return
		}
		write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionNavigate})

	case ws.ActionTabSwitch:
		count, err := h.sessions.TabSwitch(ctx, studentID)
		if err != nil {
			write(sessionError(err))
			return
		}
		write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionTabSwitch, Count: count})

	case ws.ActionDismiss:
		if err := h.sessions.DismissWarning(studentID); err != nil {
			write(sessionError(err))
			return
		}
		write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionDismiss})

	case ws.ActionBreak:
		var req ws.BreakRequest
		if err := unmarshal(raw, &req); err != nil {
			write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed break frame"})
			return
		}
		var err error
		if req.End {
			err = h.sessions.EndBreak(studentID)
		} else {
			err = h.sessions.BeginBreak(studentID)
		}
		if err != nil {
			write(sessionError(err))
			return
		}
		write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionBreak})

	case ws.ActionSubmit:
		result, err := h.sessions.Submit(ctx, studentID)
		if err != nil {
			write(submitError(err))
			return
		}
		wsLog.Info().Int("percentage", result.Percentage).Str("grade", result.Grade).Msg("Submitted over stream")
		write(ws.GradedResponse{
			Event:      ws.EventGraded,
			Status:     "RESULT_SAVED",
			TotalScore: result.TotalScore,
			MaxScore:   result.MaxScore,
			Percentage: result.Percentage,
			Grade:      result.Grade,
		})

	default:
		wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
		write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(envelope.Action)})
	}
}

// ack reports a mutation result together with the question's new status.
func (h *WSHandler) ack(studentID string, action ws.Action, questionID string, err error, write func(interface{})) {
	if err != nil {
		write(sessionError(err))
		return
	}
	status := model.StatusNotAnswered
	if snapshot, serr := h.sessions.Snapshot(studentID); serr == nil {
		if st, ok := snapshot.Statuses[questionID]; ok {
			status = st
		}
	}
	write(ws.AckResponse{Event: ws.EventAck, Action: action, QuestionID: questionID, Status: status})
}

func unmarshal(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

func sessionError(err error) ws.ErrorResponse {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		code = "EXAM_NOT_ACTIVE"
	case errors.Is(err, exam.ErrUnknownQuestion),
		errors.Is(err, exam.ErrIndexOutOfRange),
		errors.Is(err, exam.ErrInvalidOption):
		code = "INVALID_PAYLOAD"
	case errors.Is(err, exam.ErrInvalidTransition), errors.Is(err, exam.ErrSessionNotLive):
		code = "INVALID_ACTION"
	}
	return ws.ErrorResponse{Event: ws.EventError, Code: code, Error: err.Error()}
}

func submitError(err error) ws.ErrorResponse {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		code = "EXAM_NOT_ACTIVE"
	case errors.Is(err, exam.ErrAlreadyCompleted):
		code = "EXAM_ALREADY_COMPLETED"
	case errors.Is(err, exam.ErrStoreOffline):
		code = "STORE_OFFLINE"
	case errors.Is(err, service.ErrSaveFailed):
		code = "SAVE_FAILED"
	}
	return ws.ErrorResponse{Event: ws.EventError, Code: code, Error: err.Error()}
}
