package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"text/template"

	"github.com/gorilla/websocket"
	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Config holds the realtime speech-to-speech engine settings.
type Config struct {
	APIKey       string
	Model        string
	Voice        string
	BaseURL      string
	Instructions string // optional template over ResolvedDialInfo
}

const defaultInstructions = `You are a scheduling assistant for a dental practice. Your interface with the user is voice.
You are on a call with a patient who has an upcoming appointment. Your goal is to confirm the appointment details.
As a customer service representative, you are polite and professional at all times. Allow the user to end the conversation.
When the user would like to be transferred to a human agent, first confirm with them; upon confirmation, use the transfer_call tool.
The customer's name is {{.FirstName}} {{.LastName}}.`

// Factory builds one Realtime engine per call attempt.
type Factory struct {
	cfg Config
}

func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) NewEngine(job agent.Job, info agent.ResolvedDialInfo, tools agent.ToolHandler) (agent.Engine, error) {
	if f.cfg.APIKey == "" {
		return nil, errors.New("realtime engine api key is not configured")
	}

	text := f.cfg.Instructions
	if text == "" {
		text = defaultInstructions
	}
	tmpl, err := template.New("instructions").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse instructions template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, info); err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}

	return &Realtime{
		cfg:          f.cfg,
		jobID:        job.ID,
		instructions: strings.TrimSpace(buf.String()),
		tools:        tools,
	}, nil
}

// Realtime drives a speech-to-speech model session over a WebSocket. It
// handles the signaling side: session setup, tool-call round trips, reply
// generation and playout tracking. Audio frames enter through PushAudio
// and leave through the OnAudio callback; capture and playback devices
// live with the room media layer, not here.
type Realtime struct {
	cfg          Config
	jobID        string
	instructions string
	tools        agent.ToolHandler

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	active  int
	waiters []chan struct{}
	onAudio func(pcm []byte)
}

// OnAudio registers the sink for synthesized audio frames (PCM16).
func (r *Realtime) OnAudio(fn func(pcm []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAudio = fn
}

// Run connects the session and processes server events until ctx is
// cancelled or the connection drops.
func (r *Realtime) Run(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	endpoint := r.cfg.BaseURL + "?model=" + url.QueryEscape(r.cfg.Model)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}
	defer conn.Close()

	r.writeMu.Lock()
	r.conn = conn
	r.writeMu.Unlock()

	if err := r.send(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"instructions":        r.instructions,
			"voice":               r.cfg.Voice,
			"modalities":          []string{"text", "audio"},
			"input_audio_format":  "pcm16",
			"output_audio_format": "pcm16",
			"turn_detection":      map[string]any{"type": "server_vad"},
			"tools":               toolSchema(),
			"tool_choice":         "auto",
		},
	}); err != nil {
		return err
	}

	// Cancellation only closes the socket; no new network operations.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("realtime read: %w", err)
		}
		r.handleEvent(ctx, raw)
	}
}

type serverEvent struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Delta     string `json:"delta,omitempty"`
	Error     *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *Realtime) handleEvent(ctx context.Context, raw []byte) {
	var ev serverEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Log.Warnf("[%s] Unparseable realtime event: %v", r.jobID, err)
		return
	}

	switch ev.Type {
	case "response.created":
		r.mu.Lock()
		r.active++
		r.mu.Unlock()

	case "response.done":
		r.mu.Lock()
		if r.active > 0 {
			r.active--
		}
		if r.active == 0 {
			for _, w := range r.waiters {
				close(w)
			}
			r.waiters = nil
		}
		r.mu.Unlock()

	case "response.audio.delta":
		r.mu.Lock()
		sink := r.onAudio
		r.mu.Unlock()
		if sink != nil {
			if pcm, err := base64.StdEncoding.DecodeString(ev.Delta); err == nil {
				sink(pcm)
			}
		}

	case "response.function_call_arguments.done":
		// Tool calls can block on playout; never run them on the read
		// loop or the playout events they wait for would never arrive.
		go r.handleTool(ctx, ev)

	case "error":
		if ev.Error != nil {
			logger.Log.Errorf("[%s] Realtime error event: %s %s", r.jobID, ev.Error.Code, ev.Error.Message)
		}
	}
}

func (r *Realtime) handleTool(ctx context.Context, ev serverEvent) {
	logger.Log.Infof("[%s] Tool call: %s(%s)", r.jobID, ev.Name, ev.Arguments)

	out, err := r.tools(ctx, ev.Name, json.RawMessage(ev.Arguments))
	if err != nil {
		logger.Log.Errorf("[%s] Tool %s failed: %v", r.jobID, ev.Name, err)
		if out == "" {
			out = "the requested action failed"
		}
	}

	if err := r.send(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": ev.CallID,
			"output":  out,
		},
	}); err != nil {
		logger.Log.Warnf("[%s] Failed to send tool output: %v", r.jobID, err)
		return
	}
	if err := r.send(map[string]any{"type": "response.create"}); err != nil {
		logger.Log.Warnf("[%s] Failed to request follow-up response: %v", r.jobID, err)
	}
}

// GenerateReply asks the model to speak according to the instructions.
func (r *Realtime) GenerateReply(ctx context.Context, instructions string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.send(map[string]any{
		"type": "response.create",
		"response": map[string]any{
			"instructions": instructions,
		},
	})
}

// WaitForPlayout blocks until no response is in flight.
func (r *Realtime) WaitForPlayout(ctx context.Context) error {
	r.mu.Lock()
	if r.active == 0 {
		r.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	r.waiters = append(r.waiters, w)
	r.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushAudio appends captured caller audio (PCM16) to the input buffer.
func (r *Realtime) PushAudio(pcm []byte) error {
	return r.send(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	})
}

func (r *Realtime) send(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.conn == nil {
		return errors.New("realtime session not connected")
	}
	return r.conn.WriteJSON(v)
}

func toolSchema() []map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	fn := func(name, desc string, props map[string]any, required []string) map[string]any {
		if props == nil {
			props = map[string]any{}
		}
		if required == nil {
			required = []string{}
		}
		return map[string]any{
			"type":        "function",
			"name":        name,
			"description": desc,
			"parameters": map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		}
	}

	return []map[string]any{
		fn(agent.ToolTransferCall,
			"Transfer the call to a human agent, called after confirming with the user", nil, nil),
		fn(agent.ToolEndCall,
			"Called when the user wants to end the call", nil, nil),
		fn(agent.ToolLookUpAvailability,
			"Called when the user asks about alternative appointment availability",
			map[string]any{"date": str("The date of the appointment to check availability for")},
			[]string{"date"}),
		fn(agent.ToolConfirmAppointment,
			"Called when the user confirms their appointment on a specific date. Use this tool only when they are certain about the date and time.",
			map[string]any{
				"date": str("The date of the appointment"),
				"time": str("The time of the appointment"),
			},
			[]string{"date", "time"}),
		fn(agent.ToolDetectedAnsweringMachine,
			"Called when the call reaches voicemail. Use this tool AFTER you hear the voicemail greeting", nil, nil),
	}
}
