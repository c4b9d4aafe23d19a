package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/cookmode/internal/alert"
	"github.com/hammamikhairi/cookmode/internal/display"
	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/session"
	"github.com/hammamikhairi/cookmode/internal/speech"
	"github.com/hammamikhairi/cookmode/internal/timer"
	"github.com/hammamikhairi/cookmode/internal/voice"
	"github.com/hammamikhairi/cookmode/internal/wakeword"
)

var (
	servings  float64
	withVoice bool
	noSpeech  bool
)

var cookCmd = &cobra.Command{
	Use:   "cook [recipe-id]",
	Short: "Cook a recipe in the terminal",
	Long: `The cook command opens a terminal cook mode for one recipe. Without a
recipe id it resumes the active session. Arrow keys and space act as
swipes and taps, typed phrases act as voice commands, and with --voice
the microphone listens for "hey chef".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		defer a.close()

		if withVoice {
			a.cfg.Voice.Enabled = true
		}
		if noSpeech {
			a.cfg.TTS.Enabled = false
		}
		recipeID := ""
		if len(args) == 1 {
			recipeID = args[0]
		}
		return cook(cmd.Context(), a, recipeID)
	},
}

func init() {
	cookCmd.Flags().Float64VarP(&servings, "servings", "s", 1, "servings multiplier")
	cookCmd.Flags().BoolVar(&withVoice, "voice", false, "listen through the microphone (overrides voice.enabled)")
	cookCmd.Flags().BoolVar(&noSpeech, "no-speech", false, "do not read steps aloud")
}

func cook(parent context.Context, a *app, recipeID string) error {
	if servings <= 0 {
		return fmt.Errorf("servings multiplier must be positive, got %g", servings)
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, log := a.cfg, a.log
	mappings, err := cfg.Mappings()
	if err != nil {
		return err
	}
	matcher, err := voice.NewMatcher(mappings)
	if err != nil {
		return err
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		return err
	}
	presets, err := cfg.QuickTimers()
	if err != nil {
		return err
	}

	// The handlers below close over ctrl, rec and disp, which are built
	// after the UI because the controller presents to it.
	var (
		ui   *display.UI
		ctrl *session.Controller
		rec  *voice.Recognizer
		disp *gesture.Dispatcher
	)
	ui = display.New(
		display.WithGestureHandler(func(g gesture.Gesture) { disp.Dispatch(g) }),
		display.WithLineHandler(func(line string) {
			keyboard{ctrl: ctrl, matcher: matcher, ui: ui}.handle(ctx, line)
		}),
		display.WithQuickTimers(presets, func(p gesture.Action) {
			if cmd, ok := p.Command(); ok {
				ctrl.Post(session.SourceKeyboard, cmd)
			}
		}),
	)

	out := newOutput(ctx, a, ui)
	timers := timer.NewManager(log.With("timers"),
		timer.WithAutoAdvance(cfg.Behavior.AutoAdvance),
		timer.WithAlmostDoneThreshold(cfg.Behavior.AlmostDone),
	)
	ctrl = session.New(a.backend, timers, log.With("session"),
		session.WithNotifier(out.notifier),
		session.WithPresenter(ui),
		session.WithAlerter(out.alerter),
		session.WithTimerSync(cfg.Behavior.TimerSyncEvery),
	)

	var backend domain.SpeechBackend = speech.Unavailable{}
	if cfg.Voice.Enabled {
		tmp := filepath.Join(filepath.Dir(cfg.TTS.CacheDir), "stt")
		_ = os.MkdirAll(tmp, 0o755)
		backend = heardBackend{
			SpeechBackend: speech.NewEar(cfg.Voice.WhisperBin, cfg.Voice.WhisperModel, log.With("ear"),
				speech.WithClipLength(time.Duration(cfg.Voice.RecordSeconds)*time.Second),
				speech.WithBusy(out.busy),
				speech.WithTempDir(tmp),
			),
			print: ui.PrintHeard,
		}
	}
	rec = voice.New(backend,
		func(cmd domain.Command) { ctrl.Post(session.SourceVoice, cmd) },
		log.With("voice"),
		voice.WithWakeWords(cfg.Voice.WakeWords...),
		voice.WithCommandTimeout(cfg.Voice.CommandTimeout),
		voice.WithMatcher(matcher),
		voice.WithWakeHandler(func() {
			go func() { _ = out.alerter.Alert(ctx, domain.AlertWake, "") }()
		}),
		voice.WithErrorHandler(func(err error, fatal bool) { ctrl.PostSpeechError(err, fatal) }),
	)
	ctrl.SetVoice(rec)

	disp = gesture.NewDispatcher(
		func(cmd domain.Command) { ctrl.Post(session.SourceGesture, cmd) },
		log.With("gesture"),
		gesture.WithBindings(bindings),
		gesture.WithDoubleTapWindow(cfg.Gestures.DoubleTapWindow),
	)
	clock := timer.NewClock(func(context.Context) { ctrl.PostTick() }, log.With("clock"))

	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("controller: %v", err)
		}
	}()
	clock.Start(ctx)

	if cfg.Voice.Enabled && cfg.WakeWord.Enabled {
		det := wakeword.New(wakeword.ConfigFromDir(cfg.WakeWord.ModelDir, cfg.WakeWord.Threshold),
			log.With("wakeword"), wakeword.WithBusy(out.busy))
		go func() {
			if err := det.Run(ctx, rec.Wake); err != nil && ctx.Err() == nil {
				log.Warn("wake-word detector off: %v", err)
			}
		}()
	}

	fmt.Println(display.RenderBanner(hint(cfg.Voice.Enabled)))

	go func() {
		ui.WaitReady()
		s, err := startSession(ctx, ctrl, cfg.UserID, recipeID)
		if err != nil {
			_ = ui.NotifyUrgent(ctx, err.Error())
			time.Sleep(2 * time.Second)
			ui.Quit()
			return
		}
		ui.SetTitle(s.RecipeTitle)
		if cfg.Voice.Enabled {
			ctrl.Post(session.SourceKeyboard, domain.ToggleVoice{})
		}
	}()

	runErr := ui.Run(ctx)

	cancel()
	rec.Stop()
	disp.Stop()
	clock.Stop()
	<-ctrl.Done()
	return runErr
}

func hint(voiceOn bool) string {
	if voiceOn {
		return `Say "hey chef" then a command, or use the keys below.`
	}
	return "Space or arrows to move, type a command, Ctrl+C to leave."
}

// startSession begins recipeID, or resumes the active session when it is
// empty.
func startSession(ctx context.Context, ctrl *session.Controller, userID, recipeID string) (*domain.Session, error) {
	if recipeID != "" {
		return ctrl.Begin(ctx, userID, recipeID, servings)
	}
	s, err := ctrl.ResumeActive(ctx, userID)
	if errors.Is(err, domain.ErrNoActiveSession) {
		return nil, errors.New("no session to resume; run `cookmode recipes` and pass a recipe id")
	}
	return s, err
}

// ── Output ───────────────────────────────────────────────────────

// output is where the session talks to: the screen, the speakers and
// the desktop.
type output struct {
	notifier domain.Notifier
	alerter  domain.Alerter
	busy     func() bool
}

func newOutput(ctx context.Context, a *app, ui *display.UI) output {
	cfg, log := a.cfg, a.log
	out := output{notifier: ui, busy: func() bool { return false }}

	var alerters []domain.Alerter
	if cfg.Behavior.DesktopNotify {
		alerters = append(alerters, alert.NewDesktop(true, log.With("alert")))
	}

	if cfg.TTSAvailable() || cfg.Behavior.Chimes {
		player, err := speech.NewSpeakers(log.With("audio"))
		if err != nil {
			log.Error("audio output unavailable: %v", err)
		} else {
			if cfg.Behavior.Chimes {
				alerters = append(alerters, speech.NewChime(player, log.With("chime")))
			}
			if cfg.TTSAvailable() {
				tts := speech.NewAzure(cfg.TTS.AzureKey, cfg.TTS.AzureRegion, log.With("tts"),
					speech.WithVoice(cfg.TTS.Voice))
				cache := speech.NewCache(tts.Voice(), cfg.TTS.CacheDir, cfg.TTS.DiskCache, log.With("tts"))
				speaker := speech.NewSpeaker(tts, player, log.With("speaker"), speech.WithCache(cache))
				speaker.Start(ctx)
				out.notifier = speech.NewTee(ui, speaker)
				out.busy = speaker.Speaking
				log.Info("speech enabled (voice=%s, region=%s)", tts.Voice(), cfg.TTS.AzureRegion)
			}
		}
	} else if cfg.TTS.Enabled {
		log.Info("speech disabled: set AZURE_SPEECH_KEY and AZURE_SPEECH_REGION to enable")
	}

	out.alerter = alert.Multi(alerters...)
	return out
}

// heardBackend echoes every transcript to the screen before the
// recognizer sees it.
type heardBackend struct {
	domain.SpeechBackend
	print func(string)
}

func (b heardBackend) Start(ctx context.Context, sink domain.TranscriptSink) error {
	return b.SpeechBackend.Start(ctx, heardSink{TranscriptSink: sink, print: b.print})
}

type heardSink struct {
	domain.TranscriptSink
	print func(string)
}

func (s heardSink) OnTranscript(text string) {
	s.print(text)
	s.TranscriptSink.OnTranscript(text)
}

// ── Keyboard ─────────────────────────────────────────────────────

// commander is the part of the controller typed lines drive.
type commander interface {
	Post(src session.Source, cmd domain.Command) bool
	Complete(ctx context.Context, outcome domain.Outcome) error
	Abandon(ctx context.Context) error
}

// hinter prints feedback for typed lines.
type hinter interface {
	PrintHint(text string)
	Quit()
}

// keyboard turns a typed line into a command. Lines use the same
// phrases as voice, without the wake word, plus a few session verbs.
type keyboard struct {
	ctrl    commander
	matcher *voice.Matcher
	ui      hinter
}

func (k keyboard) handle(ctx context.Context, line string) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "quit", "exit":
		k.ui.Quit()
		return
	case "finish", "complete":
		var outcome domain.Outcome
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				k.ui.PrintHint("usage: finish [rating 1-5]")
				return
			}
			outcome.Rating = &n
		}
		if err := k.ctrl.Complete(ctx, outcome); err != nil {
			k.ui.PrintHint(err.Error())
		}
		return
	case "abandon":
		if err := k.ctrl.Abandon(ctx); err != nil {
			k.ui.PrintHint(err.Error())
		}
		return
	}

	cmd, ok := k.matcher.Match(line)
	if !ok {
		k.ui.PrintHint(fmt.Sprintf("Didn't catch %q. Try \"next\", \"repeat\" or \"set a timer for 5 minutes\".", line))
		return
	}
	if !k.ctrl.Post(session.SourceKeyboard, cmd) {
		k.ui.PrintHint("busy, try again")
	}
}
