package usecase

import (
	"context"
	"errors"
	"time"

	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/service"
	"priceactiontalk/internal/utils"
)

// BiasFreshness bounds how old a score may be to count as current
const BiasFreshness = time.Hour

// MessageMacroUpdate is the relay message type for new macro scores
const MessageMacroUpdate = "macro_update"

// MacroService reads, generates and compares currency heat scores
type MacroService struct {
	repo        domain.MacroRepository
	generator   *service.MockFactorGenerator
	broadcaster domain.Broadcaster
	now         func() time.Time
}

// NewMacroService creates a new MacroService. broadcaster may be nil when no relay is running.
func NewMacroService(repo domain.MacroRepository, generator *service.MockFactorGenerator, broadcaster domain.Broadcaster) *MacroService {
	return &MacroService{
		repo:        repo,
		generator:   generator,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Current returns the newest fresh score per currency
func (s *MacroService) Current(ctx context.Context) ([]*domain.MacroBias, error) {
	return s.repo.Recent(ctx, s.now().Add(-BiasFreshness))
}

// History returns scores in the timeframe, optionally for one currency.
// Unknown timeframes fall back to 24h.
func (s *MacroService) History(ctx context.Context, currency, timeframe string) ([]*domain.MacroBias, string, error) {
	timeframe = utils.NormalizeTimeframe(timeframe, utils.Timeframe24h)

	var since time.Time
	if start := utils.TimeframeStart(timeframe, s.now()); start != nil {
		since = *start
	}

	biases, err := s.repo.History(ctx, currency, since)
	return biases, timeframe, err
}

// GenerateMock scores every currency from random factors, stores the batch and relays it
func (s *MacroService) GenerateMock(ctx context.Context) ([]*domain.MacroBias, error) {
	biases := s.generator.Generate(s.now())
	if err := s.repo.InsertBatch(ctx, biases); err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastToRoom(ctx, domain.RoomMacro, MessageMacroUpdate, biases); err != nil {
			zlog.Warn().Err(err).Msg("Failed to relay macro update")
		}
	}

	zlog.Info().Int("currencies", len(biases)).Msg("Mock macro bias generated")
	return biases, nil
}

// Analyze compares the fresh scores of a pair's two currencies
func (s *MacroService) Analyze(ctx context.Context, pair string) (*domain.PairAnalysis, error) {
	base, quote, err := service.ParsePair(pair)
	if err != nil {
		return nil, err
	}

	since := s.now().Add(-BiasFreshness)

	baseBias, err := s.repo.Latest(ctx, base, since)
	if err != nil {
		return nil, missingBias(err)
	}
	quoteBias, err := s.repo.Latest(ctx, quote, since)
	if err != nil {
		return nil, missingBias(err)
	}

	return service.AnalyzePair(baseBias, quoteBias), nil
}

func missingBias(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrMissingBiasData
	}
	return err
}
