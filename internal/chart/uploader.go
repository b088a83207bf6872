package chart

import (
	"context"
	"fmt"

	"github.com/joonhk-lab/kosis-agent/internal/domain"
)

// Uploader renders the accumulated records of a run and stores the image
// under charts/<runID>.png.
type Uploader struct {
	store ArtifactStore
}

func NewUploader(store ArtifactStore) *Uploader {
	return &Uploader{store: store}
}

func (u *Uploader) Generate(ctx context.Context, runID string, records []domain.NormalizedRecord) error {
	img, err := Render(records)
	if err != nil {
		return err
	}
	return u.store.Put(ctx, fmt.Sprintf("charts/%s.png", runID), "image/png", img)
}
