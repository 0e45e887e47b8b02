package extraction

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// ExtractAll fans extraction out across a file batch, one concurrent task
// per file, and waits for every task to finish. All-or-nothing: if any
// single extraction fails the whole call fails and no partial results are
// returned. Output order always matches input order, regardless of
// completion order.
func (s *Service) ExtractAll(ctx context.Context, locators []string) ([]ExtractedContent, error) {
	log.Printf("[extract-text-files] Starting batch extraction fileCount=%d", len(locators))

	results := make([]ExtractedContent, len(locators))

	g, gCtx := errgroup.WithContext(ctx)
	for i, locator := range locators {
		g.Go(func() error {
			content, err := s.ExtractFile(gCtx, locator)
			if err != nil {
				return err
			}
			results[i] = content
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, content := range results {
		total += len(content.Text)
	}
	log.Printf("[extract-text-files] Batch extraction completed fileCount=%d totalTextLength=%d", len(locators), total)

	return results, nil
}
