package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yashorr/deadline-detector/internal/model"
)

// Completer is the understanding-service collaborator: a single
// request/response text completion, no streaming, no retry.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Analyzer turns a raw message string into zero-or-one deadline. Every
// failure mode (service error, malformed completion, unparsable
// timestamp) collapses into "no deadline"; callers cannot distinguish a
// failed extraction from a message that genuinely has none.
type Analyzer struct {
	completer Completer
	logger    *zap.Logger

	// now is the wall clock the prompt embeds so relative expressions
	// ("tomorrow", "by Friday") resolve against real time. Overridden
	// in tests.
	now func() time.Time
}

// New creates an Analyzer backed by the given completer.
func New(completer Completer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		completer: completer,
		logger:    logger,
		now:       time.Now,
	}
}

// completion is the JSON object the model is instructed to return.
type completion struct {
	ContainsDeadline bool    `json:"containsDeadline"`
	DeadlineISO      *string `json:"deadlineISO"`
}

// fenceRe matches a fenced code block so the embedded object survives
// models that ignore the no-markdown instruction.
var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// Analyze extracts a deadline from text. The boolean is false when no
// deadline was detected, for any reason.
func (a *Analyzer) Analyze(ctx context.Context, text string) (time.Time, bool) {
	raw, err := a.completer.Complete(ctx, a.buildPrompt(text))
	if err != nil {
		a.logger.Debug("completion call failed",
			zap.Error(err),
		)
		return time.Time{}, false
	}

	result, err := parseCompletion(raw)
	if err != nil {
		a.logger.Debug("completion did not parse",
			zap.String("raw", raw),
			zap.Error(err),
		)
		return time.Time{}, false
	}

	if !result.ContainsDeadline || result.DeadlineISO == nil {
		return time.Time{}, false
	}

	dueAt, err := parseDeadlineISO(*result.DeadlineISO)
	if err != nil {
		a.logger.Debug("deadline timestamp did not parse",
			zap.String("deadline_iso", *result.DeadlineISO),
			zap.Error(err),
		)
		return time.Time{}, false
	}

	return dueAt, true
}

// buildPrompt embeds the candidate text and the current wall-clock time
// into the extraction instructions.
func (a *Analyzer) buildPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Analyze this message and determine if it contains a deadline. ")
	sb.WriteString("Your analysis should focus solely on extracting deadline-related information:\n\n")
	sb.WriteString("* Detect whether the message specifies a deadline (explicit or implicit).\n")
	sb.WriteString("* If a deadline exists, extract it and convert it into an ISO 8601 datetime format (YYYY-MM-DDTHH:mm).\n")
	sb.WriteString(fmt.Sprintf("* Current time is %s to help with implicit deadline detection.\n", a.now().Format(time.RFC1123)))
	sb.WriteString("* If no exact time is mentioned, use \"00:00\" as the default time.\n")
	sb.WriteString("* If no deadline is found, return \"containsDeadline\" as false and \"deadlineISO\" as null.\n\n")
	sb.WriteString("Respond ONLY in this JSON format and do not include any other text or markdown in the answer:\n\n")
	sb.WriteString("{\n\"containsDeadline\": true,\n\"deadlineISO\": \"2025-08-02T18:00\"\n}\n\n")
	sb.WriteString("IMPORTANT:\n\n")
	sb.WriteString("* Respond with *only* valid raw JSON.\n")
	sb.WriteString("* Do NOT include markdown, code fences, comments, or any extra formatting.\n\n")
	sb.WriteString(fmt.Sprintf("Message: %q\n", text))

	return sb.String()
}

// parseCompletion strips any code fence from the raw completion and
// decodes the embedded JSON object.
func parseCompletion(raw string) (completion, error) {
	body := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	var result completion
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return completion{}, fmt.Errorf("decoding completion: %w", err)
	}
	return result, nil
}

// parseDeadlineISO parses the model's timestamp at minute precision,
// tolerating a trailing seconds component, in local time.
func parseDeadlineISO(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	t, err := time.ParseInLocation(model.TimeLayout, value, time.Local)
	if err == nil {
		return t, nil
	}

	t, err = time.ParseInLocation("2006-01-02T15:04:05", value, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return t.Truncate(time.Minute), nil
}
