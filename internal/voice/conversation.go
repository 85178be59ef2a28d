package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/recorder"
)

// settleDelay gives the capture pipeline a moment to finalize buffering
// between stop and submit.
const settleDelay = 300 * time.Millisecond

// replyEncoding is the container of assistant reply audio.
const replyEncoding = recorder.Encoding("audio/mpeg")

// Exchanger submits one recording. Implemented by Client.
type Exchanger interface {
	Exchange(ctx context.Context, audio []byte, filename, language string, includeSources bool) (*ExchangeResult, error)
}

// SessionControl is the slice of recorder.Session the conversation drives.
type SessionControl interface {
	Start() error
	Stop()
	State() recorder.State
	Bytes() []byte
	Encoding() recorder.Encoding
	BeginSubmit() bool
	EndSubmit()
}

// Control is the UI affordance for the single voice button. SetRecording
// mutates it between "start talking" and "stop and process".
type Control interface {
	SetRecording(recording bool)
}

// NopControl ignores affordance changes, for headless use.
type NopControl struct{}

func (NopControl) SetRecording(bool) {}

// Renderer displays a completed exchange: the transcribed question, the
// assistant's answer, and any cited sources.
type Renderer interface {
	Render(result *ExchangeResult)
}

// Conversation runs the two-phase voice handshake on one control:
// first activation records, second activation stops and submits.
type Conversation struct {
	session        SessionControl
	client         Exchanger
	control        Control
	renderer       Renderer
	player         recorder.Player
	status         recorder.StatusSink
	language       string
	includeSources bool
	settle         time.Duration
	logger         log.Logger
}

// Config wires a Conversation.
type Config struct {
	Session        SessionControl
	Client         Exchanger
	Control        Control             // nil allowed
	Renderer       Renderer            // nil allowed
	Player         recorder.Player     // nil disables reply playback
	Status         recorder.StatusSink // nil discards statuses
	Language       string              // language hint, default "en"
	IncludeSources bool
	Logger         log.Logger
}

// NewConversation creates the controller.
func NewConversation(cfg Config) *Conversation {
	if cfg.Control == nil {
		cfg.Control = NopControl{}
	}
	if cfg.Status == nil {
		cfg.Status = recorder.NopStatusSink{}
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Conversation{
		session:        cfg.Session,
		client:         cfg.Client,
		control:        cfg.Control,
		renderer:       cfg.Renderer,
		player:         cfg.Player,
		status:         cfg.Status,
		language:       cfg.Language,
		includeSources: cfg.IncludeSources,
		settle:         settleDelay,
		logger:         cfg.Logger,
	}
}

// Toggle advances the handshake one step. Idle starts a recording and flips
// the control; recording stops, restores the control, and submits. Calls
// while a submission is in flight are ignored.
func (c *Conversation) Toggle(ctx context.Context) error {
	switch c.session.State() {
	case recorder.StateRecording:
		return c.stopAndSubmit(ctx)
	case recorder.StateSubmitting:
		c.logger.Debug("toggle ignored during submission")
		return nil
	default:
		return c.beginRecording()
	}
}

func (c *Conversation) beginRecording() error {
	if err := c.session.Start(); err != nil {
		// Session already published the error status; control stays in its
		// initial affordance.
		return err
	}
	c.control.SetRecording(true)
	return nil
}

func (c *Conversation) stopAndSubmit(ctx context.Context) error {
	c.session.Stop()
	c.control.SetRecording(false)

	// Let the final slice land before the buffer is consumed.
	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	audio := c.session.Bytes()
	if len(audio) == 0 {
		c.status.Publish(recorder.StatusError, recorder.ErrorStatus("no audio recorded"))
		return nil
	}

	if !c.session.BeginSubmit() {
		c.logger.Debug("submission rejected, session not in buffer_ready state")
		return nil
	}
	defer c.session.EndSubmit()

	c.status.Publish(recorder.StatusInfo, "Processing your voice message...")

	filename := "recording." + c.session.Encoding().FileExtension()
	result, err := c.client.Exchange(ctx, audio, filename, c.language, c.includeSources)
	if err != nil {
		c.reportExchangeError(err)
		return fmt.Errorf("voice exchange: %w", err)
	}

	if c.renderer != nil {
		c.renderer.Render(result)
	}
	c.playReply(result)
	c.status.Publish(recorder.StatusSuccess, "Voice conversation complete.")
	return nil
}

// reportExchangeError surfaces the server's message when there is one,
// otherwise a generic processing failure. No retries on any path.
func (c *Conversation) reportExchangeError(err error) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		c.status.Publish(recorder.StatusError, recorder.ErrorStatus(serverErr.Message))
		return
	}
	c.logger.Error("voice exchange failed", "error", err)
	c.status.Publish(recorder.StatusError, recorder.ErrorStatus("voice processing failed"))
}

func (c *Conversation) playReply(result *ExchangeResult) {
	if c.player == nil {
		return
	}
	audio, err := result.DecodeAudio()
	if err != nil {
		c.logger.Warn("could not decode reply audio", "error", err)
		return
	}
	if len(audio) == 0 {
		return
	}
	if err := c.player.Play(audio, replyEncoding); err != nil {
		c.logger.Warn("reply playback failed", "error", err)
	}
}
