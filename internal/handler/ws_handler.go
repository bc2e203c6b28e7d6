package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/middleware"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
	ws "github.com/stemsi/motoquiz-backend/internal/websocket"
)

const (
	outboundBuffer = 16
	actionTimeout  = 15 * time.Second
	// closeGrace bounds how long a finished stream stays open for the reply
	// of a submit action still in progress.
	closeGrace = 5 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams the running exam of the current user.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=
// Pushes countdown ticks and submission outcomes, and accepts answer,
// navigate, submit, state and ping actions. The connection is closed once the
// attempt is submitted or abandoned.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	userID := claims.UserID

	events, unsubscribe, err := h.sessionService.Subscribe(userID)
	if err != nil {
		failExam(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", userID).Logger()
	wsLog.Info().Msg("User connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan interface{}, outboundBuffer)
	writerDone := make(chan struct{})
	var submitting atomic.Bool
	go h.writeLoop(ctx, conn, events, out, writerDone, &submitting, wsLog)

	if view, err := h.sessionService.State(ctx, userID); err == nil {
		push(out, writerDone, ws.StateResponse{Event: ws.EventState, State: view.Snapshot})
	}

	ws.KeepAlive(conn)
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		reply := h.handleAction(ctx, userID, &msg, &submitting)
		if reply != nil && !push(out, writerDone, reply) {
			break
		}
	}

	cancel()
	<-writerDone
}

// handleAction runs one client action and returns the reply, if any. A failed
// submission is reported through the event stream.
func (h *WSHandler) handleAction(ctx context.Context, userID int, msg *ws.RequestPayload, submitting *atomic.Bool) interface{} {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}

	case ws.ActionState:
		view, err := h.sessionService.State(ctx, userID)
		if err != nil {
			return errorReply(err)
		}
		return ws.StateResponse{Event: ws.EventState, State: view.Snapshot}

	case ws.ActionAnswer:
		if msg.QuestionIndex == nil || msg.OptionID == nil {
			return ws.ErrorResponse{
				Event: ws.EventError,
				Code:  string(response.ErrInvalidPayload),
				Error: response.GetMessage(response.ErrInvalidPayload),
			}
		}
		snap, err := h.sessionService.Answer(ctx, userID, *msg.QuestionIndex, *msg.OptionID)
		if err != nil {
			return errorReply(err)
		}
		return ws.StateResponse{Event: ws.EventState, State: snap}

	case ws.ActionNavigate:
		dir := exam.Direction(msg.Direction)
		if dir != exam.DirectionPrevious && dir != exam.DirectionNext {
			return ws.ErrorResponse{
				Event: ws.EventError,
				Code:  string(response.ErrInvalidPayload),
				Error: response.GetMessage(response.ErrInvalidPayload),
			}
		}
		snap, err := h.sessionService.Navigate(ctx, userID, dir)
		if err != nil {
			return errorReply(err)
		}
		return ws.StateResponse{Event: ws.EventState, State: snap}

	case ws.ActionSubmit:
		submitting.Store(true)
		result, err := h.sessionService.Submit(ctx, userID)
		if err != nil {
			submitting.Store(false)
			if errors.Is(err, exam.ErrPersistFailed) {
				return nil
			}
			return errorReply(err)
		}
		return ws.SubmittedResponse{Event: ws.EventSubmitted, AutoSubmitted: result.AutoSubmitted, Result: result}

	default:
		h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		return ws.ErrorResponse{
			Event: ws.EventError,
			Code:  string(response.ErrInvalidPayload),
			Error: "unknown action: " + string(msg.Action),
		}
	}
}

// writeLoop is the only goroutine writing to conn. The graded result reaches
// the client once, whether it comes from the submit reply or the session
// event. When the session ends while a submit action is still running, the
// stream stays open until that reply is written or closeGrace passes.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan exam.Event, out <-chan interface{}, done chan<- struct{}, submitting *atomic.Bool, log zerolog.Logger) {
	defer close(done)
	// Closing unblocks the reader in ExamStream.
	defer conn.Close()

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	var (
		resultSent bool
		closing    <-chan time.Time
	)

	write := func(msg interface{}) bool {
		if _, ok := msg.(ws.SubmittedResponse); ok {
			if resultSent {
				return true
			}
			resultSent = true
		}
		if err := ws.WriteTyped(conn, msg); err != nil {
			log.Debug().Err(err).Msg("Write failed")
			return false
		}
		return true
	}

	finish := func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "exam finished"),
			time.Now().Add(time.Second))
	}

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-out:
			if !write(msg) {
				return
			}
			if closing != nil {
				finish()
				return
			}

		case e, ok := <-events:
			if !ok {
				if resultSent || !submitting.Load() {
					finish()
					return
				}
				events = nil
				closing = time.After(closeGrace)
				continue
			}
			msg := eventMessage(e)
			if msg == nil {
				continue
			}
			if !write(msg) {
				return
			}

		case <-closing:
			finish()
			return

		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// push hands msg to the writer unless it has already exited.
func push(out chan<- interface{}, writerDone <-chan struct{}, msg interface{}) bool {
	select {
	case out <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// eventMessage converts a session event into its wire message. Events the
// client already learns from its own action replies map to nil.
func eventMessage(e exam.Event) interface{} {
	switch e.Type {
	case exam.EventTick:
		return ws.TickResponse{
			Event:            ws.EventTick,
			RemainingSeconds: e.RemainingSeconds,
			Clock:            exam.FormatClock(e.RemainingSeconds),
		}
	case exam.EventSubmitted:
		return ws.SubmittedResponse{Event: ws.EventSubmitted, AutoSubmitted: e.Result != nil && e.Result.AutoSubmitted, Result: e.Result}
	case exam.EventSubmitFailed:
		return ws.SubmitFailedResponse{Event: ws.EventSubmitFailed, Error: response.GetMessage(response.ErrSubmitFailed)}
	case exam.EventAbandoned:
		return ws.ErrorResponse{
			Event: ws.EventError,
			Code:  string(response.ErrExamAbandoned),
			Error: response.GetMessage(response.ErrExamAbandoned),
		}
	default:
		return nil
	}
}

func errorReply(err error) ws.ErrorResponse {
	_, code := examErrCode(err)
	return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: response.GetMessage(code)}
}
