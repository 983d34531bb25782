package services

import (
	"context"
	"fmt"
)

// exportJob packages one deck in the background. The codec's atomicity
// contract means a failed job leaves the destination untouched, so
// retrying is just resubmitting.
type exportJob struct {
	svc      *deckService
	handleID string
	dest     string
}

func (j *exportJob) Name() string {
	return fmt.Sprintf("export %s -> %s", j.handleID, j.dest)
}

func (j *exportJob) Run(ctx context.Context) error {
	return j.svc.ExportDeck(ctx, j.handleID, j.dest)
}
