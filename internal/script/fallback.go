package script

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

// demoSentences is the fallback meditation, one sentence per entry.
// Entries ending in "\n" close a paragraph.
var demoSentences = []string{
	"Welcome.",
	"Find a comfortable position and let your eyes gently close.",
	"Take a slow breath in through your nose.",
	"And let it go.\n",
	"Notice the weight of your body resting where you are.",
	"There is nothing you need to do right now.",
	"Breathe in, and feel your chest rise.",
	"Breathe out, and let your shoulders soften.\n",
	"If your mind wanders, that is fine.",
	"Simply notice it, and return to the breath.",
	"Each breath a little slower.",
	"Each breath a little deeper.\n",
	"Feel the calm spreading from your chest to your hands.",
	"Let your jaw relax.",
	"Let your forehead become smooth.",
	"Rest here for a moment.\n",
	"Know that you can come back to this stillness whenever you need it.",
	"When you are ready, take one more deep breath.",
	"Gently open your eyes.",
	"Thank you for taking this time for yourself.",
}

// DemoScript returns a calm generic script of roughly targetWords words,
// cut at a sentence boundary. It always contains at least two sentences and
// never more than the whole demo text.
func DemoScript(targetWords int) string {
	var (
		b     strings.Builder
		words int
	)
	for i, s := range demoSentences {
		if i >= 2 && words >= targetWords {
			break
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		words += pacing.CountWords(s)
	}
	return strings.TrimSpace(b.String())
}

// Fallback wraps a Generator and substitutes DemoScript when it fails.
type Fallback struct {
	next   Generator
	logger *slog.Logger
}

var _ Generator = (*Fallback)(nil)

// WithFallback wraps next. A nil next always yields the demo script.
// If logger is nil, slog.Default() is used.
func WithFallback(next Generator, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{next: next, logger: logger}
}

// Generate returns next's script, or the demo script if next fails.
// Cancellation of ctx is still reported as an error.
func (f *Fallback) Generate(ctx context.Context, req Request) (string, error) {
	if f.next == nil {
		return DemoScript(req.TargetWords), nil
	}

	text, err := f.next.Generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return "", err
	}

	f.logger.Warn("script generation failed, using demo script",
		slog.Int("target_words", req.TargetWords),
		slog.String("error", err.Error()),
	)
	return DemoScript(req.TargetWords), nil
}
