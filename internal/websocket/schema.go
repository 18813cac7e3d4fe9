package websocket

import "github.com/varunsiravuri/exam-platform/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionMark      Action = "mark"
	ActionNavigate  Action = "navigate"
	ActionTabSwitch Action = "tab_switch"
	ActionDismiss   Action = "dismiss_warning"
	ActionBreak     Action = "break"
	ActionSubmit    Action = "submit"
	ActionSync      Action = "sync"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest answers or clears one question. A null selected_option
// clears the prior answer.
type AnswerRequest struct {
	Action         Action `json:"action"`
	QuestionID     string `json:"question_id"`
	SelectedOption *int   `json:"selected_option"`
}

// MarkRequest toggles the review flag on one question.
type MarkRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Marked     bool   `json:"marked"`
}

// NavigateRequest jumps to a question by index.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// BreakRequest starts or ends the between-section break.
type BreakRequest struct {
	Action Action `json:"action"`
	End    bool   `json:"end"`
}

// SubmitRequest finishes and grades the exam.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError        Event = "error"
	EventAck          Event = "ack"
	EventState        Event = "state"
	EventNotification Event = "notification"
	EventGraded       Event = "graded"
	EventPong         Event = "pong"
)

// AckResponse confirms a mutation together with the question's new status.
type AckResponse struct {
	Event      Event                `json:"event"`
	Action     Action               `json:"action"`
	QuestionID string               `json:"question_id,omitempty"`
	Status     model.QuestionStatus `json:"status,omitempty"`
	Count      int                  `json:"count,omitempty"`
}

// StateResponse carries a full session snapshot (sync and recovery).
type StateResponse struct {
	Event Event       `json:"event"`
	State interface{} `json:"state"`
}

// NotificationResponse pushes a server-initiated event (time warning,
// long-question advisory, forced logout).
type NotificationResponse struct {
	Event Event                  `json:"event"`
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// GradedResponse reports the saved result after submission.
type GradedResponse struct {
	Event      Event   `json:"event"`
	Status     string  `json:"status"`
	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`
	Percentage int     `json:"percentage"`
	Grade      string  `json:"grade"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
