package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"finman/internal/core"
	"finman/internal/log"
	"finman/internal/market"
	"finman/internal/storage"
)

// PriceService refreshes stored stock prices from market data.
type PriceService struct {
	storage *storage.SQLiteRepository
	market  *market.Client
	logger  *log.Logger
}

func NewPriceService(storage *storage.SQLiteRepository, market *market.Client, logger *log.Logger) *PriceService {
	return &PriceService{
		storage: storage,
		market:  market,
		logger:  logger.WithComponent(log.ComponentMarket),
	}
}

// RefreshStock fetches the latest quote for one holding and stores it.
func (s *PriceService) RefreshStock(ctx context.Context, stock core.Stock) error {
	quote, err := s.market.GetQuote(ctx, stock.Symbol)
	if err != nil {
		return err
	}
	return s.storage.UpdateStockPrice(ctx, stock.ID, quote.Price)
}

// RefreshAll updates every stored stock, fetching at most parallel quotes
// at a time. A failed symbol is logged and skipped; the pass continues.
func (s *PriceService) RefreshAll(ctx context.Context, parallel int) (int, error) {
	stocks, err := s.storage.ListAllStocks(ctx)
	if err != nil {
		return 0, err
	}
	if parallel < 1 {
		parallel = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	refreshed := make(chan int64, len(stocks))
	for _, stock := range stocks {
		g.Go(func() error {
			if err := s.RefreshStock(gctx, stock); err != nil {
				s.logger.WarnContext(gctx, "Price refresh failed",
					log.FieldSymbol, stock.Symbol,
					log.FieldProductID, stock.ID,
					log.FieldError, err.Error())
				return nil
			}
			refreshed <- stock.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(refreshed)

	count := len(refreshed)
	s.logger.InfoContext(ctx, "Price refresh pass complete",
		"refreshed", count,
		"total", len(stocks))
	return count, nil
}
