// Package codec implements the 700 bit/s sinusoidal speech codec's external
// interface: create a channel, encode a 320-sample superframe to
// four wire code-words, decode those code-words back to PCM, and read the
// frame's energy without a full decode.
package codec

import (
	"fmt"
	"io"
	"math"

	charmlog "github.com/charmbracelet/log"

	"github.com/voicewire/codec700c/dsp/harmonic"
	"github.com/voicewire/codec700c/dsp/quant"
	"github.com/voicewire/codec700c/internal/tables"
)

// SamplesPerFrame is the number of PCM samples a single Encode/Decode call
// consumes or produces: NModels=4 sub-frames of NSamp=80 samples each.
const SamplesPerFrame = tables.NModels * tables.NSamp

// IndexesPerFrame is the number of uint16 code-words per superframe.
const IndexesPerFrame = 4

const (
	defaultVoicingThresholdDB = tables.VThreshDB
	defaultPostFilterMarginDB = 6.0
	minVoicingThresholdDB     = -20.0
	maxVoicingThresholdDB     = 20.0
	minPostFilterMarginDB     = -20.0
	maxPostFilterMarginDB     = 20.0
)

type config struct {
	logger             *charmlog.Logger
	voicingThresholdDB float64
	postFilterMarginDB float64
}

func defaultConfig() config {
	return config{
		logger:             charmlog.NewWithOptions(io.Discard, charmlog.Options{Level: charmlog.FatalLevel}),
		voicingThresholdDB: defaultVoicingThresholdDB,
		postFilterMarginDB: defaultPostFilterMarginDB,
	}
}

// Option configures a [Codec].
type Option func(*config) error

// WithLogger overrides the codec's default no-op logger. Construction
// failures and, at debug level, per-superframe voicing and energy summaries
// are logged through it.
func WithLogger(logger *charmlog.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return fmt.Errorf("codec: logger must not be nil")
		}

		cfg.logger = logger

		return nil
	}
}

// WithVoicingThresholdDB overrides the MBE voicing decision's SNR threshold
// (default tables.VThreshDB).
func WithVoicingThresholdDB(db float64) Option {
	return func(cfg *config) error {
		if db < minVoicingThresholdDB || db > maxVoicingThresholdDB {
			return fmt.Errorf("codec: voicing threshold must be in [%g, %g] dB: %g",
				minVoicingThresholdDB, maxVoicingThresholdDB, db)
		}

		cfg.voicingThresholdDB = db

		return nil
	}
}

// WithPostFilterMargin overrides the decoder's post-filter margin added on
// top of the background-noise estimate when deciding which voiced harmonics
// get randomized phase (default 6dB).
func WithPostFilterMargin(db float64) Option {
	return func(cfg *config) error {
		if db < minPostFilterMarginDB || db > maxPostFilterMarginDB {
			return fmt.Errorf("codec: post-filter margin must be in [%g, %g] dB: %g",
				minPostFilterMarginDB, maxPostFilterMarginDB, db)
		}

		cfg.postFilterMarginDB = db

		return nil
	}
}

// Codec holds one channel's encode and decode state. The encoder side is a
// sliding speech history and a pitch estimator; the decoder side is the
// previous superframe's interpolation anchors, the excitation phase, and the
// post-filter's background-noise estimate. The two are independent and a
// Codec may be used purely for encode or purely for decode.
type Codec struct {
	analyzer *harmonic.Analyzer
	decoder  *harmonic.DecoderState
	logger   *charmlog.Logger
}

// New allocates a Codec. The returned error identifies which subsystem
// failed to initialise: the harmonic analyser (encoder) or the harmonic
// decoder.
func New(opts ...Option) (*Codec, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	analyzer, err := harmonic.NewAnalyzer()
	if err != nil {
		cfg.logger.Errorf("harmonic analyser init failed: %v", err)
		return nil, fmt.Errorf("codec: harmonic analyser: %w", err)
	}

	decoder, err := harmonic.NewDecoderState()
	if err != nil {
		cfg.logger.Errorf("harmonic decoder init failed: %v", err)
		return nil, fmt.Errorf("codec: harmonic decoder: %w", err)
	}

	decoder.SetPostFilterMarginDB(cfg.postFilterMarginDB)
	analyzer.SetVoicingThresholdDB(cfg.voicingThresholdDB)

	return &Codec{analyzer: analyzer, decoder: decoder, logger: cfg.logger}, nil
}

// SamplesPerFrame returns the number of PCM samples per Encode/Decode call.
func (c *Codec) SamplesPerFrame() int { return SamplesPerFrame }

// IndexesPerFrame returns the number of uint16 code-words per frame.
func (c *Codec) IndexesPerFrame() int { return IndexesPerFrame }

// Encode analyses a 320-sample superframe as four successive 80-sample
// sub-frame analyses — only the final sub-frame's harmonic model is kept —
// then quantises that model into the four wire code-words.
func (c *Codec) Encode(speech [SamplesPerFrame]int16) (quant.Indexes, error) {
	var m harmonic.Model

	chunk := make([]float64, tables.NSamp)

	for sub := 0; sub < tables.NModels; sub++ {
		for i := range chunk {
			chunk[i] = float64(speech[sub*tables.NSamp+i])
		}

		var err error

		m, err = c.analyzer.AnalyzeSegment(chunk)
		if err != nil {
			return quant.Indexes{}, fmt.Errorf("codec: encode: %w", err)
		}
	}

	idx := quant.EncodeModelToIndexes(m)
	c.logger.Debugf("encode: voiced=%v wo=%.4f indexes=%v", m.Voiced, m.Wo, idx)

	return idx, nil
}

// Decode reconstructs a 320-sample superframe from its four wire
// code-words: one interpolation step produces the four sub-frame models,
// then each is synthesised independently.
func (c *Codec) Decode(idx quant.Indexes) ([SamplesPerFrame]int16, error) {
	var out [SamplesPerFrame]int16

	vec, wo, voiced := quant.DecodeIndexesToVector(idx)
	models := c.decoder.Interpolate(vec, wo, voiced)

	c.logger.Debugf("decode: voiced=%v wo=%.4f energy=%.4g", voiced, wo, DecodeEnergy(idx))

	for sub := 0; sub < tables.NModels; sub++ {
		samples, err := c.decoder.SynthesizeSubframe(models[sub])
		if err != nil {
			return out, fmt.Errorf("codec: decode: %w", err)
		}

		copy(out[sub*tables.NSamp:(sub+1)*tables.NSamp], samples[:])
	}

	return out, nil
}

// DecodeEnergy reports a frame's linear energy estimate from its code-words
// alone, without a full decode: the quantised mean rate-K amplitude, shifted
// down 10dB, with an extra 10dB subtracted for unvoiced frames.
func DecodeEnergy(idx quant.Indexes) float64 {
	e := quant.DecodeEnergy(idx[2]) - 10
	if idx[3] == 0 {
		e -= 10
	}

	return math.Pow(10, e/10)
}
