package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	"contentflow/internal/service/themer"
)

// rethemeConcurrency bounds parallel categorization calls after a bootstrap
const rethemeConcurrency = 4

// applyThemes scores one item and stores the matches that clear the
// confidence threshold. Failures are logged and swallowed.
func (p *Pipeline) applyThemes(ctx context.Context, contentID, text string, allowNew bool) {
	existing, err := p.themes.List(ctx)
	if err != nil {
		p.logger.Warn("theming skipped: list themes", "content_id", contentID, "error", err)
		return
	}
	if len(existing) == 0 {
		return
	}

	matches, err := p.themer.AssignThemes(ctx, text, existing)
	if err != nil {
		p.logger.Warn("theming failed", "content_id", contentID, "error", err)
		return
	}

	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t.ID] = true
	}

	var assignments []models.ThemeAssignment
	for _, score := range matches.Scores {
		if !known[score.ThemeID] {
			p.logger.Debug("dropping unknown theme id", "content_id", contentID, "theme_id", score.ThemeID)
			continue
		}
		if score.Confidence < p.opts.MinConfidence {
			p.logger.Debug("dropping low-confidence theme",
				"content_id", contentID,
				"theme_id", score.ThemeID,
				"confidence", score.Confidence,
			)
			continue
		}
		confidence := score.Confidence
		assignments = append(assignments, models.ThemeAssignment{
			ContentID:  contentID,
			ThemeID:    score.ThemeID,
			Confidence: &confidence,
		})
	}

	if len(assignments) == 0 && allowNew && matches.NewTheme != nil {
		theme, err := p.createTheme(ctx, *matches.NewTheme, len(existing))
		if err != nil {
			p.logger.Warn("could not create suggested theme", "content_id", contentID, "name", matches.NewTheme.Name, "error", err)
		} else {
			confidence := newThemeConfidence
			assignments = append(assignments, models.ThemeAssignment{
				ContentID:  contentID,
				ThemeID:    theme.ID,
				Confidence: &confidence,
			})
		}
	}

	if len(assignments) == 0 {
		return
	}
	if err := p.themes.Assign(ctx, assignments); err != nil {
		p.logger.Warn("storing theme assignments failed", "content_id", contentID, "error", err)
		return
	}
	p.logger.Debug("themes assigned", "content_id", contentID, "count", len(assignments))
}

// createTheme stores a proposal, returning the existing theme on a name clash
func (p *Pipeline) createTheme(ctx context.Context, proposal models.ThemeProposal, position int) (*models.Theme, error) {
	color := models.PaletteColor(position)
	theme := &models.Theme{Name: proposal.Name, Color: &color}
	if d := strings.TrimSpace(proposal.Description); d != "" {
		theme.Description = &d
	}
	err := p.themes.Create(ctx, theme)
	if errors.Is(err, domain.ErrConflict) {
		return p.themes.GetByName(ctx, proposal.Name)
	}
	if err != nil {
		return nil, err
	}
	return theme, nil
}

// maybeBootstrap proposes a first theme set once the corpus is large enough
// and no themes exist yet. Only one attempt is made per process; a failed
// proposal is not retried automatically, POST /themes/propose still works.
func (p *Pipeline) maybeBootstrap(ctx context.Context) {
	if p.opts.BootstrapThreshold <= 0 {
		return
	}
	if !p.bootstrapMu.TryLock() {
		return
	}
	defer p.bootstrapMu.Unlock()
	if p.bootstrapped {
		return
	}

	ready, err := p.bootstrapDue(ctx)
	if err != nil {
		p.logger.Warn("theme bootstrap check failed", "error", err)
		return
	}
	if !ready {
		return
	}
	p.bootstrapped = true

	created, err := p.ProposeThemes(ctx)
	if err != nil {
		p.logger.Warn("theme bootstrap failed", "error", err)
		return
	}
	p.logger.Info("bootstrapped themes", "count", len(created))
}

func (p *Pipeline) bootstrapDue(ctx context.Context) (bool, error) {
	themes, err := p.themes.Count(ctx)
	if err != nil || themes > 0 {
		return false, err
	}
	contents, err := p.contents.Count(ctx)
	if err != nil {
		return false, err
	}
	return contents >= p.opts.BootstrapThreshold, nil
}

// ProposeThemes derives themes from the newest summaries, stores them and
// re-themes the sampled items
func (p *Pipeline) ProposeThemes(ctx context.Context) ([]models.Theme, error) {
	corpus, err := p.contents.RecentSummaries(ctx, p.opts.BootstrapSample)
	if err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, &domain.ValidationError{Message: "no summarized content to propose themes from"}
	}

	proposals, err := p.themer.ProposeThemes(ctx, corpus)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("theme proposal failed", "sample", len(corpus), "error", err)
		return nil, &domain.SummarizationFailedError{Message: "theme proposal failed", Cause: err}
	}

	count, err := p.themes.Count(ctx)
	if err != nil {
		return nil, err
	}

	created := make([]models.Theme, 0, len(proposals))
	for i, proposal := range themer.DedupeProposals(proposals) {
		color := models.PaletteColor(count + i)
		theme := &models.Theme{Name: proposal.Name, Color: &color}
		if d := strings.TrimSpace(proposal.Description); d != "" {
			theme.Description = &d
		}
		if err := p.themes.Create(ctx, theme); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				p.logger.Debug("skipping proposed theme, name taken", "name", proposal.Name)
				continue
			}
			return created, fmt.Errorf("create proposed theme: %w", err)
		}
		created = append(created, *theme)
	}

	if len(created) > 0 {
		p.retheme(ctx, corpus)
	}
	return created, nil
}

// retheme scores the sampled items against the new theme set. New-theme
// suggestions are ignored here so one bootstrap cannot cascade.
func (p *Pipeline) retheme(ctx context.Context, corpus []models.CorpusEntry) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rethemeConcurrency)
	for _, entry := range corpus {
		g.Go(func() error {
			p.applyThemes(gctx, entry.ContentID, corpusText(entry), false)
			return nil
		})
	}
	_ = g.Wait()
}

func corpusText(e models.CorpusEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nOverview: %s\n", e.Title, e.Overview)
	if len(e.KeyInsights) > 0 {
		sb.WriteString("\nKey Insights:\n")
		for _, insight := range e.KeyInsights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}
	return sb.String()
}
