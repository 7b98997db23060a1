package daily

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dadam-app/dadam/internal/model"
)

// CompletionClient produces a model completion for a system/user prompt pair.
// *genai.Client satisfies it.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator turns a kind (and an optional pre-picked category) into a payload.
// It never fails: any generation or parse problem degrades to the kind's
// fixed fallback payload, so a day always gets content.
type Generator struct {
	client CompletionClient
	logger *slog.Logger
}

func NewGenerator(client CompletionClient, logger *slog.Logger) *Generator {
	return &Generator{
		client: client,
		logger: logger.With("component", "daily-generator"),
	}
}

// Generate produces the payload for one day of the given kind. category is
// only meaningful for kinds that declare categories; pass "" otherwise.
func (g *Generator) Generate(ctx context.Context, kind model.ItemKind, category string) model.Payload {
	spec := specFor(kind)

	raw, err := g.client.Complete(ctx, spec.systemPrompt, spec.userPrompt(category))
	if err != nil {
		g.logger.Warn("generation failed, using fallback", "kind", kind, "error", err)
		return spec.fallback()
	}

	var p model.Payload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &p); err != nil {
		g.logger.Warn("generation returned unparseable payload, using fallback", "kind", kind, "error", err)
		return spec.fallback()
	}

	p, ok := spec.sanitize(p)
	if !ok {
		g.logger.Warn("generation returned incomplete payload, using fallback", "kind", kind)
		return spec.fallback()
	}
	return p
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
