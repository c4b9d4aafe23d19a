// Package wakeword detects the wake word acoustically with the
// openWakeWord ONNX pipeline: melspectrogram, embedding, wakeword.
//
// The detector captures 16 kHz mono audio through miniaudio (malgo),
// feeds 80 ms chunks through the three models and calls back when the
// score crosses a threshold. It lets a session open a command window
// without waiting for the speech engine to transcribe "hey chef".
package wakeword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Model file names inside a model directory.
const (
	MelspecFile   = "melspectrogram.onnx"
	EmbeddingFile = "embedding_model.onnx"
	WakewordFile  = "hey_chef.onnx"
)

const audioQueueCap = 32

// Config holds the model paths and tuning knobs for a Detector.
type Config struct {
	WakewordModel  string
	MelspecModel   string
	EmbeddingModel string
	OnnxLib        string

	Threshold float32       // default 0.5
	Cooldown  time.Duration // default 1.5s
}

// ConfigFromDir derives every path from one model directory.
func ConfigFromDir(dir string, threshold float32) Config {
	return Config{
		WakewordModel:  filepath.Join(dir, WakewordFile),
		MelspecModel:   filepath.Join(dir, MelspecFile),
		EmbeddingModel: filepath.Join(dir, EmbeddingFile),
		OnnxLib:        filepath.Join(dir, onnxLibName()),
		Threshold:      threshold,
	}
}

func onnxLibName() string {
	switch goruntime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 1500 * time.Millisecond
	}
}

// Check reports the first model file that is missing.
func (c Config) Check() error {
	for _, p := range []string{c.OnnxLib, c.MelspecModel, c.EmbeddingModel, c.WakewordModel} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("wakeword model: %w", err)
		}
	}
	return nil
}

// Option configures a Detector.
type Option func(*Detector)

// WithBusy skips audio while fn reports true, so the detector does not
// hear the speaker. Buffers are flushed when it turns false again.
func WithBusy(fn func() bool) Option {
	return func(d *Detector) { d.busy = fn }
}

// Detector listens for the wake word until its context ends.
type Detector struct {
	cfg  Config
	log  *logger.Logger
	busy func() bool
}

// New creates a Detector. Call Run to start listening.
func New(cfg Config, log *logger.Logger, opts ...Option) *Detector {
	cfg.defaults()
	d := &Detector{cfg: cfg, log: log, busy: func() bool { return false }}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// session is one ONNX model bound to fixed input and output tensors.
type session struct {
	in   *ort.Tensor[float32]
	out  *ort.Tensor[float32]
	sess *ort.AdvancedSession
}

func openSession(path string, in, out ort.Shape) (*session, error) {
	inT, err := ort.NewEmptyTensor[float32](in)
	if err != nil {
		return nil, err
	}
	outT, err := ort.NewEmptyTensor[float32](out)
	if err != nil {
		inT.Destroy()
		return nil, err
	}
	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		inT.Destroy()
		outT.Destroy()
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	s, err := ort.NewAdvancedSession(path,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{inT}, []ort.Value{outT}, nil)
	if err != nil {
		inT.Destroy()
		outT.Destroy()
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &session{in: inT, out: outT, sess: s}, nil
}

func (s *session) run() error { return s.sess.Run() }

func (s *session) close() {
	s.sess.Destroy()
	s.in.Destroy()
	s.out.Destroy()
}

// Run loads the models, opens the capture device and calls onWake for
// every detection until ctx is done. It blocks; run it in a goroutine.
func (d *Detector) Run(ctx context.Context, onWake func()) error {
	if err := d.cfg.Check(); err != nil {
		return err
	}

	ort.SetSharedLibraryPath(d.cfg.OnnxLib)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx runtime: %w", err)
	}
	defer func() { _ = ort.DestroyEnvironment() }()

	mel, err := openSession(d.cfg.MelspecModel, ort.NewShape(1, chunkSamples), ort.NewShape(1, 1, nMelFrames, melBins))
	if err != nil {
		return err
	}
	defer mel.close()
	emb, err := openSession(d.cfg.EmbeddingModel, ort.NewShape(1, melWindowSize, melBins, 1), ort.NewShape(1, 1, 1, embeddingDim))
	if err != nil {
		return err
	}
	defer emb.close()
	ww, err := openSession(d.cfg.WakewordModel, ort.NewShape(1, nEmbedFrames, embeddingDim), ort.NewShape(1, 1))
	if err != nil {
		return err
	}
	defer ww.close()

	frames, stop, err := d.capture()
	if err != nil {
		return err
	}
	defer stop()

	d.log.Info("wakeword listening (threshold %.2f)", d.cfg.Threshold)
	return d.loop(ctx, frames, pipeline{mel: mel, emb: emb, ww: ww}, onWake)
}

// capture starts the microphone and returns its frame stream.
func (d *Detector) capture() (<-chan []int16, func(), error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, nil, fmt.Errorf("audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = sampleRate
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.Alsa.NoMMap = 1

	frames := make(chan []int16, audioQueueCap)
	var drops atomic.Int64
	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, raw []byte, _ uint32) {
			if len(raw) == 0 {
				return
			}
			select {
			case frames <- decodePCM(raw):
			default:
				drops.Add(1)
			}
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, nil, fmt.Errorf("capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, nil, fmt.Errorf("capture start: %w", err)
	}

	stop := func() {
		_ = device.Stop()
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		if n := drops.Load(); n > 0 {
			d.log.Debug("wakeword: dropped %d audio frames", n)
		}
	}
	return frames, stop, nil
}

// pipeline is the three models in order.
type pipeline struct {
	mel, emb, ww *session
}

var errModelRun = errors.New("model run failed")

func (d *Detector) loop(ctx context.Context, frames <-chan []int16, p pipeline, onWake func()) error {
	chunks := newChunker(chunkSamples)
	feats := newFeatures()
	trig := newTrigger(d.cfg.Threshold, d.cfg.Cooldown)
	wasBusy := false

	for {
		var frame []int16
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame = <-frames:
		}

		if d.busy() {
			wasBusy = true
			continue
		}
		if wasBusy {
			wasBusy = false
			chunks.reset()
			feats.reset()
			trig.clear()
			d.log.Debug("wakeword: buffers flushed after speech")
		}

		for _, chunk := range chunks.push(frame) {
			score, ok, err := d.score(p, feats, chunk)
			if err != nil {
				d.log.Warn("wakeword: %v", err)
				continue
			}
			if !ok {
				continue
			}
			if trig.observe(score, time.Now()) {
				d.log.Info("wakeword detected (score %.3f)", score)
				onWake()
			}
		}
	}
}

// score pushes one chunk through the models. ok is false when the chunk
// did not complete a new embedding.
func (d *Detector) score(p pipeline, feats *features, chunk []int16) (float32, bool, error) {
	in := p.mel.in.GetData()
	for i, v := range chunk {
		in[i] = float32(v)
	}
	if err := p.mel.run(); err != nil {
		return 0, false, fmt.Errorf("melspectrogram: %w: %v", errModelRun, err)
	}
	feats.pushMel(p.mel.out.GetData()[:nMelFrames*melBins])

	added, err := feats.embedWindows(func(window []float32) ([]float32, error) {
		copy(p.emb.in.GetData(), window)
		if err := p.emb.run(); err != nil {
			return nil, fmt.Errorf("embedding: %w: %v", errModelRun, err)
		}
		return p.emb.out.GetData(), nil
	})
	if err != nil || !added {
		return 0, false, err
	}

	feats.scoreInput(p.ww.in.GetData())
	if err := p.ww.run(); err != nil {
		return 0, false, fmt.Errorf("wakeword: %w: %v", errModelRun, err)
	}
	return p.ww.out.GetData()[0], true, nil
}
