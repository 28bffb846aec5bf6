package port

import (
	"context"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
)

type CompletionNotifier interface {
	Notify(ctx context.Context, target, requestID, resultLocation string, status entity.ProcessingStatus) error
}
