package speech

import (
	"context"
	"fmt"

	"github.com/f3rmion/webreader/internal/config"
	"github.com/sirupsen/logrus"
)

// New creates the synthesizer selected by cfg. It returns a nil
// Synthesizer and no error when speech is disabled, or when the engine is
// "auto" and no local speech program exists. Callers treat a nil
// Synthesizer as "speech unavailable" and skip speaking.
func New(ctx context.Context, cfg config.SpeechConfig, log logrus.FieldLogger) (Synthesizer, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch cfg.Engine {
	case config.EngineNone:
		return nil, nil

	case config.EngineSilent:
		return NewEngine(NewSilentVoice(), log), nil

	case config.EngineCommand:
		v, err := NewCommandVoice(cfg.Command, cfg.Voice)
		if err != nil {
			return nil, err
		}
		return NewEngine(v, log), nil

	case config.EngineGoogle:
		v, err := NewGoogleVoice(ctx, cfg.Language, cfg.Voice, log)
		if err != nil {
			return nil, err
		}
		return NewEngine(v, log), nil

	case config.EngineAuto, "":
		v, err := NewCommandVoice(cfg.Command, cfg.Voice)
		if err != nil {
			log.WithError(err).Info("speech disabled")
			return nil, nil
		}
		return NewEngine(v, log), nil

	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}
