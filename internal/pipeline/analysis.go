package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/llm"
	"github.com/nathan/docsheet/internal/prompts"
	"github.com/nathan/docsheet/internal/schemas"
	"github.com/nathan/docsheet/internal/tabular"
)

// Analyze generates structured insights for a project's dataset. Results
// are cached by content fingerprint: as long as the record set is
// unchanged, the cached analysis is returned without a model call.
func (p *Pipeline) Analyze(ctx context.Context, projectID uuid.UUID) (string, error) {
	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", fmt.Errorf("project not found: %s", projectID)
	}
	if len(project.RecordSet) == 0 {
		return "", fmt.Errorf("project has no data to analyze")
	}

	fingerprint := tabular.Fingerprint(project.RecordSet)

	cached, err := p.store.GetAnalysis(ctx, projectID)
	if err != nil {
		return "", err
	}
	if cached != nil && cached.Fingerprint == fingerprint {
		opAnalyze.Log("Returning cached analysis projectID=%s", projectID)
		return cached.Content, nil
	}

	opAnalyze.Log("Generating analysis projectID=%s rows=%d", projectID, len(project.RecordSet))

	template := prompts.MustGet("analysis.json", "insight-analysis")
	prompt := prompts.Format(template, map[string]string{"Data": project.CSVData})

	content, err := p.model.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis: %w", err)
	}

	if err := schemas.ValidateAnalysis(content); err != nil {
		return "", fmt.Errorf("model returned malformed analysis: %w", err)
	}

	if err := p.store.UpsertAnalysis(ctx, projectID, content, fingerprint); err != nil {
		opAnalyze.Log("Failed to cache analysis projectID=%s error=%v", projectID, err)
	}

	return content, nil
}
