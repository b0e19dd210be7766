package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/repomanager"
)

// ModelCache is an optional read-through cache of the model catalog.
// Get reports ok=false on a miss.
type ModelCache interface {
	Get(ctx context.Context) (list []models.Model, ok bool, err error)
	Set(ctx context.Context, list []models.Model) error
}

// CatalogService lists the models a user may chat with.
type CatalogService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	cache       ModelCache
	logger      logging.Logger
}

// NewCatalogService builds the service; cache may be nil.
func NewCatalogService(db dbx.DBTX, m repomanager.RepositoryManager, cache ModelCache, l logging.Logger) *CatalogService {
	return &CatalogService{db: db, repomanager: m, cache: cache, logger: l.With("module", "catalog")}
}

// GetAvailable returns the full catalog, oldest first. Cache failures are
// logged and fall through to the store.
func (s *CatalogService) GetAvailable(ctx context.Context, _ auth.UserContext) ([]models.Model, error) {
	if s.cache != nil {
		list, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "model cache read failed", "error", err.Error())
		case ok:
			return list, nil
		}
	}

	list, err := s.repomanager.Models(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing models: %v", common.ErrorInternal, err)
	}
	if list == nil {
		list = []models.Model{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, list); err != nil {
			s.logger.Warn(ctx, "model cache write failed", "error", err.Error())
		}
	}
	return list, nil
}
