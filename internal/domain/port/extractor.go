package port

import (
	"context"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
)

type FrameExtractor interface {
	Extract(ctx context.Context, sourcePath, outputDir string, limits entity.ExtractionLimits) (*entity.ExtractionResult, error)
}
