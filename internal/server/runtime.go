package server

import (
	"context"

	"github.com/hammamikhairi/cookmode/internal/alert"
	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/gesture"
	"github.com/hammamikhairi/cookmode/internal/logger"
	"github.com/hammamikhairi/cookmode/internal/session"
	"github.com/hammamikhairi/cookmode/internal/timer"
	"github.com/hammamikhairi/cookmode/internal/voice"
)

// runtime is everything one user's cook mode needs.
type runtime struct {
	userID string
	log    *logger.Logger

	hub    *hub
	speech *socketSpeech
	ctrl   *session.Controller
	rec    *voice.Recognizer
	disp   *gesture.Dispatcher
	clock  *timer.Clock

	cancel context.CancelFunc
}

func (s *Server) newRuntime(userID string) *runtime {
	ctx, cancel := context.WithCancel(s.ctx)
	st := s.settings
	h := newHub(s.log)

	var alerter domain.Alerter = h
	if s.alerter != nil {
		alerter = alert.Multi(h, s.alerter)
	}

	ctrlOpts := []session.Option{
		session.WithNotifier(h),
		session.WithPresenter(h),
		session.WithAlerter(alerter),
		session.WithTimerSync(st.TimerSyncEvery),
	}
	if s.metrics != nil {
		ctrlOpts = append(ctrlOpts, session.WithRecorder(s.metrics))
	}
	timers := timer.NewManager(s.log,
		timer.WithAutoAdvance(st.AutoAdvance),
		timer.WithAlmostDoneThreshold(st.AlmostDone),
	)
	ctrl := session.New(s.backend, timers, s.log, ctrlOpts...)

	rt := &runtime{
		userID: userID,
		log:    s.log,
		hub:    h,
		speech: newSocketSpeech(h),
		ctrl:   ctrl,
		cancel: cancel,
	}

	rt.rec = voice.New(rt.speech,
		func(cmd domain.Command) { ctrl.Post(session.SourceVoice, cmd) },
		s.log,
		voice.WithWakeWords(st.WakeWords...),
		voice.WithCommandTimeout(st.CommandTimeout),
		voice.WithMatcher(s.matcher),
		voice.WithWakeHandler(func() {
			go func() { _ = alerter.Alert(ctx, domain.AlertWake, "") }()
		}),
		voice.WithErrorHandler(func(err error, fatal bool) { ctrl.PostSpeechError(err, fatal) }),
		voice.WithStateHandler(func(listening, awaiting bool) {
			h.broadcast(outbound{Type: "state", Listening: boolPtr(listening), Awaiting: boolPtr(awaiting)})
		}),
	)
	ctrl.SetVoice(rt.rec)

	rt.disp = gesture.NewDispatcher(
		func(cmd domain.Command) { ctrl.Post(session.SourceGesture, cmd) },
		s.log,
		gesture.WithBindings(st.Bindings),
		gesture.WithDoubleTapWindow(st.DoubleTapWindow),
	)
	rt.clock = timer.NewClock(func(context.Context) { ctrl.PostTick() }, s.log,
		timer.WithTickInterval(st.TickInterval))

	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("controller for %s: %v", userID, err)
		}
	}()
	rt.clock.Start(ctx)
	return rt
}

// transcript routes a browser transcript to the recognizer while it is
// listening.
func (rt *runtime) transcript(text string) {
	if sink := rt.speech.current(); sink != nil {
		sink.OnTranscript(text)
	}
}

func (rt *runtime) speechError(err error) {
	if sink := rt.speech.current(); sink != nil {
		sink.OnSpeechError(err)
	}
}

func (rt *runtime) speechEnd() {
	if sink := rt.speech.current(); sink != nil {
		sink.OnSpeechEnd()
	}
}

func (rt *runtime) stop() {
	rt.cancel()
	rt.rec.Stop()
	rt.disp.Stop()
	rt.clock.Stop()
	<-rt.ctrl.Done()
	rt.log.Debug("runtime for %s stopped", rt.userID)
}
