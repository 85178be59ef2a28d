package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/docvoice/docvoice/internal/recorder"
	"github.com/docvoice/docvoice/internal/tui"
	"github.com/docvoice/docvoice/internal/voice"
)

var (
	voiceServerURL string
	voiceLanguage  string
	voiceSources   bool
	voiceSaveDir   string
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Hold a voice conversation with a running docvoice server",
	Long: `Record questions with the microphone and play them through the
voice-to-voice pipeline of a running server.

Press Enter to start recording, Enter again to stop and submit. The
transcribed question and the answer appear in the conversation transcript;
reply audio can be saved with --save-dir. Press q to quit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVoice(cmd.Context())
	},
}

func init() {
	voiceCmd.Flags().StringVar(&voiceServerURL, "server", "http://127.0.0.1:3400", "docvoice server base URL")
	voiceCmd.Flags().StringVar(&voiceLanguage, "language", "en", "reply language")
	voiceCmd.Flags().BoolVar(&voiceSources, "sources", false, "request source attribution")
	voiceCmd.Flags().StringVar(&voiceSaveDir, "save-dir", "", "directory to save reply audio (MP3)")
	rootCmd.AddCommand(voiceCmd)
}

// wavExchanger wraps the voice client and converts the raw PCM capture
// buffer into a WAV container before submission.
type wavExchanger struct {
	client *voice.Client
}

func (e *wavExchanger) Exchange(ctx context.Context, audio []byte, filename, language string, includeSources bool) (*voice.ExchangeResult, error) {
	wav, err := recorder.EncodeWAV(audio, recorder.SampleRate, recorder.Channels)
	if err != nil {
		return nil, fmt.Errorf("encoding capture buffer: %w", err)
	}
	return e.client.Exchange(ctx, wav, filename, language, includeSources) //nolint:wrapcheck
}

func runVoice(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	device, err := recorder.NewPortAudioDevice(logger)
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer func() { _ = device.Terminate() }()

	// The feed bridges the recorder and conversation callbacks into the
	// Bubble Tea event loop.
	feed := tui.NewFeed(ctx)
	session := recorder.NewSession(device, feed, logger)
	session.Initialize()
	if !session.Available() {
		return recorder.ErrCaptureUnavailable
	}

	if voiceSaveDir != "" {
		if err := os.MkdirAll(voiceSaveDir, 0o750); err != nil {
			return fmt.Errorf("creating save directory: %w", err)
		}
	}

	client := voice.NewClient(voiceServerURL, nil, logger)
	conv := voice.NewConversation(voice.Config{
		Session:        session,
		Client:         &wavExchanger{client: client},
		Control:        feed,
		Renderer:       feed,
		Status:         feed,
		Language:       voiceLanguage,
		IncludeSources: voiceSources,
		Logger:         logger,
	})

	model, err := tui.New(ctx, tui.Config{
		Conversation: conv,
		Feed:         feed,
		Stop:         session.Stop,
		SaveDir:      voiceSaveDir,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("building voice interface: %w", err)
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running voice interface: %w", err)
	}
	return nil
}
