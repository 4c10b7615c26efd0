package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizora/quizora-backend/internal/middleware"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/service"
	"github.com/quizora/quizora-backend/internal/session"
	ws "github.com/quizora/quizora-backend/internal/websocket"
	"github.com/rs/zerolog"
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

// WSHandler streams one exam session over a WebSocket: answer recording,
// clock ticks, pause/resume, and submission.
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

// safeConn serializes writes; listener callbacks arrive on the clock
// goroutine while action replies come from the read loop.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *safeConn) writeEvent(event ws.Event, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = ws.WriteEvent(c.conn, event, data)
}

func (c *safeConn) writeError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = ws.WriteError(c.conn, msg)
}

// SessionStream godoc
// WS /ws/v1/learner/sessions/:session_id/stream
// Upgrades to WebSocket for live answer recording and clock ticks.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()
	conn := &safeConn{conn: raw}

	learnerID := claims.UserID
	ctx := context.Background()

	view, err := h.sessionService.GetSessionState(ctx, sessionID, learnerID)
	if err != nil {
		conn.writeError(err.Error())
		return
	}

	// Max time derived once; tick events convert elapsed to remaining.
	maxTime := 0
	timed := view.RemainingSeconds != nil
	if timed {
		maxTime = view.TimeSpentSeconds + *view.RemainingSeconds
	}

	wsLog := h.log.With().
		Int("learner_id", learnerID).
		Str("session_id", sessionID.String()).
		Logger()

	unsubscribe, err := h.sessionService.Subscribe(ctx, sessionID, learnerID, service.SessionListeners{
		OnTick: func(elapsed int) {
			data := ws.TickData{Seconds: elapsed, CountDown: timed}
			if timed {
				remaining := maxTime - elapsed
				if remaining < 0 {
					remaining = 0
				}
				data.Seconds = remaining
			}
			conn.writeEvent(ws.EventTick, data)
		},
		OnSubmitted: func(state model.SessionState, result *model.ExamSessionResult) {
			conn.writeEvent(ws.EventSubmitted, submittedData(state, result))
		},
	})
	if err != nil {
		conn.writeError(err.Error())
		return
	}
	defer unsubscribe()

	wsLog.Info().Msg("Learner connected")
	conn.writeEvent(ws.EventState, view)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(raw, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, sessionID, learnerID, &msg)
		case ws.ActionReset:
			h.handleReset(ctx, conn, sessionID, learnerID, &msg)
		case ws.ActionFlag:
			h.handleFlag(ctx, conn, sessionID, learnerID, &msg)
		case ws.ActionPause:
			if err := h.sessionService.Pause(ctx, sessionID, learnerID); err != nil {
				conn.writeError(err.Error())
				continue
			}
			conn.writeEvent(ws.EventPaused, nil)
		case ws.ActionResume:
			if err := h.sessionService.Resume(ctx, sessionID, learnerID); err != nil {
				conn.writeError(err.Error())
				continue
			}
			conn.writeEvent(ws.EventResumed, nil)
		case ws.ActionSubmit:
			result, err := h.sessionService.Submit(ctx, sessionID, learnerID)
			if err != nil {
				conn.writeError(err.Error())
				continue
			}
			// The subscription already pushed EventSubmitted; answering the
			// request directly covers a listener registered after submit.
			state, _ := h.currentState(ctx, sessionID, learnerID)
			conn.writeEvent(ws.EventSubmitted, submittedData(state, result))
		case ws.ActionState:
			view, err := h.sessionService.GetSessionState(ctx, sessionID, learnerID)
			if err != nil {
				conn.writeError(err.Error())
				continue
			}
			conn.writeEvent(ws.EventState, view)
		case ws.ActionPing:
			conn.writeEvent(ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *safeConn, sessionID uuid.UUID, learnerID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}
	sel := session.Selection{ChoiceIDs: msg.ChoiceIDs, OrderedChoiceIDs: msg.OrderedChoiceIDs}
	ans, err := h.sessionService.RecordAnswer(ctx, sessionID, learnerID, questionID, sel)
	if err != nil {
		conn.writeError(err.Error())
		return
	}
	conn.writeEvent(ws.EventSaved, ws.SavedData{QuestionID: questionID, Answered: ans.Answered()})
}

func (h *WSHandler) handleReset(ctx context.Context, conn *safeConn, sessionID uuid.UUID, learnerID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}
	ans, err := h.sessionService.ResetAnswer(ctx, sessionID, learnerID, questionID)
	if err != nil {
		conn.writeError(err.Error())
		return
	}
	conn.writeEvent(ws.EventSaved, ws.SavedData{QuestionID: questionID, Answered: ans.Answered()})
}

func (h *WSHandler) handleFlag(ctx context.Context, conn *safeConn, sessionID uuid.UUID, learnerID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.writeError("invalid question_id format")
		return
	}
	if err := h.sessionService.FlagQuestion(ctx, sessionID, learnerID, questionID, msg.Flagged); err != nil {
		conn.writeError(err.Error())
		return
	}
	conn.writeEvent(ws.EventSaved, ws.SavedData{QuestionID: questionID, Answered: false})
}

func (h *WSHandler) currentState(ctx context.Context, sessionID uuid.UUID, learnerID int) (model.SessionState, error) {
	view, err := h.sessionService.GetSessionState(ctx, sessionID, learnerID)
	if err != nil {
		return "", err
	}
	return view.State, nil
}

// submittedData hides scores while the session awaits manual review or
// the exam defers results to the result endpoint.
func submittedData(state model.SessionState, result *model.ExamSessionResult) ws.SubmittedData {
	data := ws.SubmittedData{State: string(state)}
	if state != model.SessionStatePendingReview && result != nil {
		data.Result = result
	}
	return data
}
