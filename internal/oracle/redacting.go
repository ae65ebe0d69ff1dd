package oracle

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
)

// Redacting scrubs credentials from the user turn before it reaches next.
// System prompts are ours and pass through untouched.
type Redacting struct {
	next     Completer
	redactor *redact.Redactor
	log      *logging.Logger
}

var _ Completer = (*Redacting)(nil)

// NewRedacting wraps next.
func NewRedacting(next Completer, redactor *redact.Redactor, logger *logging.Logger) *Redacting {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Redacting{next: next, redactor: redactor, log: logger.Named("redact")}
}

// Complete implements Completer.
func (r *Redacting) Complete(ctx context.Context, p Prompt) (string, error) {
	res := r.redactor.Redact(p.User)
	if len(res.Findings) > 0 {
		r.log.Warn(ctx, "redacted credentials from prompt",
			zap.Int("findings", len(res.Findings)),
			zap.String("rules", strings.Join(res.RuleIDs(), ",")))
		p.User = res.Text
	}
	return r.next.Complete(ctx, p)
}
