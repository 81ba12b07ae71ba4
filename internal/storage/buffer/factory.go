package buffer

import (
	"fmt"

	"github.com/beedb-project/beedb/config"
	"github.com/beedb-project/beedb/internal/storage/page"
)

// NewFromConfig builds a Pool sized and strategized per cfg.
func NewFromConfig(mgr *page.Manager, cfg config.Config) (*Pool, error) {
	var strat ReplacementStrategy
	switch cfg.Replacement {
	case config.StrategyClock:
		strat = NewClockStrategy(cfg.BufferPoolFrames)
	case config.StrategyLRU:
		strat = NewLRUStrategy(cfg.BufferPoolFrames)
	case config.StrategyLRUK:
		strat = NewLRUKStrategy(cfg.BufferPoolFrames, cfg.LRUK)
	case config.StrategyLFU:
		strat = NewLFUStrategy(cfg.BufferPoolFrames)
	default:
		return nil, fmt.Errorf("buffer: unknown replacement strategy %q", cfg.Replacement)
	}
	return New(mgr, cfg.BufferPoolFrames, strat), nil
}
