package retrieval

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/intent"
)

// Rewrite guard bounds. Very short queries carry too little signal to clean
// up; very long ones are usually multiple questions and a rewrite would pick
// one arbitrarily.
const (
	rewriteConfidenceCeiling = 0.40
	rewriteMinWords          = 4
	rewriteMaxWords          = 30
	rewriteMaxOutputWords    = 15

	DefaultRewriteTimeout = 5 * time.Second
)

const rewriteSystemPrompt = "You clean up voice-transcribed questions for an information kiosk. " +
	"Rewrite the user's text as one short, clear question, keeping the original meaning and language. " +
	"Remove filler words and transcription noise. " +
	"Do not answer the question. Reply with the rewritten question only."

// Transformer is the external text-transform service the rewriter calls.
type Transformer interface {
	Transform(ctx context.Context, systemPrompt, userText string, timeout time.Duration) (string, error)
}

// Rewriter is the guarded query-cleanup retry. It is consumed by the caller
// after a low-confidence result, never invoked by the gating engine itself:
// the caller checks ShouldRewrite, rewrites, then issues a second Retrieve
// with IsRetry set.
type Rewriter struct {
	transformer Transformer
	enabled     bool
	timeout     time.Duration
}

// NewRewriter creates a rewriter. When enabled is false ShouldRewrite always
// answers false and the transform service is never called.
func NewRewriter(transformer Transformer, enabled bool, timeout time.Duration) *Rewriter {
	if timeout <= 0 {
		timeout = DefaultRewriteTimeout
	}
	return &Rewriter{transformer: transformer, enabled: enabled, timeout: timeout}
}

// ShouldRewrite reports whether a result qualifies for one rewrite retry:
// feature on, intent unresolved, confidence low, and query length inside the
// guard window.
func (r *Rewriter) ShouldRewrite(result *domain.GatingResult, query string) bool {
	if !r.enabled || r.transformer == nil || result == nil {
		return false
	}
	if result.Intent != intent.Unclear {
		return false
	}
	if result.Confidence >= rewriteConfidenceCeiling {
		return false
	}
	words := len(strings.Fields(query))
	return words >= rewriteMinWords && words <= rewriteMaxWords
}

// Rewrite sends the query through the transform service and returns the
// cleaned text. Any failure, timeout, empty reply or over-long reply keeps
// the original query; the caller never sees an error from this path.
func (r *Rewriter) Rewrite(ctx context.Context, query string) string {
	rewritten, err := r.transformer.Transform(ctx, rewriteSystemPrompt, query, r.timeout)
	if err != nil {
		log.Printf("retrieval: rewrite failed, keeping original query: %v", err)
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" || len(strings.Fields(rewritten)) > rewriteMaxOutputWords {
		return query
	}
	return rewritten
}
