package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/service"
)

type mockMacroRepo struct {
	insertBatchFunc func(ctx context.Context, biases []*domain.MacroBias) error
	recentFunc      func(ctx context.Context, since time.Time) ([]*domain.MacroBias, error)
	historyFunc     func(ctx context.Context, currency string, since time.Time) ([]*domain.MacroBias, error)
	latestFunc      func(ctx context.Context, currency string, since time.Time) (*domain.MacroBias, error)
}

func (m *mockMacroRepo) InsertBatch(ctx context.Context, biases []*domain.MacroBias) error {
	return m.insertBatchFunc(ctx, biases)
}

func (m *mockMacroRepo) Recent(ctx context.Context, since time.Time) ([]*domain.MacroBias, error) {
	return m.recentFunc(ctx, since)
}

func (m *mockMacroRepo) History(ctx context.Context, currency string, since time.Time) ([]*domain.MacroBias, error) {
	return m.historyFunc(ctx, currency, since)
}

func (m *mockMacroRepo) Latest(ctx context.Context, currency string, since time.Time) (*domain.MacroBias, error) {
	return m.latestFunc(ctx, currency, since)
}

type recordingBroadcaster struct {
	rooms []string
	types []string
}

func (b *recordingBroadcaster) BroadcastToRoom(_ context.Context, room, msgType string, _ any) error {
	b.rooms = append(b.rooms, room)
	b.types = append(b.types, msgType)
	return nil
}

func newMacroFixture(repo *mockMacroRepo, b domain.Broadcaster) *MacroService {
	svc := NewMacroService(repo, service.NewMockFactorGenerator(rand.New(rand.NewSource(7))), b)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestMacroService_Analyze(t *testing.T) {
	scores := map[string]float64{"EUR": 2.5, "USD": -0.5}

	repo := &mockMacroRepo{
		latestFunc: func(_ context.Context, currency string, since time.Time) (*domain.MacroBias, error) {
			if !since.Equal(time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)) {
				t.Errorf("since = %v, want one hour back", since)
			}
			score, ok := scores[currency]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return &domain.MacroBias{Currency: currency, HeatScore: score}, nil
		},
	}
	svc := newMacroFixture(repo, nil)

	t.Run("strong buy", func(t *testing.T) {
		a, err := svc.Analyze(context.Background(), "eurusd")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Pair != "EURUSD" || a.PairBias != 3 || a.Signal != domain.SignalStrongBuy || a.Confidence != 30 {
			t.Errorf("unexpected analysis: %+v", a)
		}
	})

	t.Run("missing currency", func(t *testing.T) {
		_, err := svc.Analyze(context.Background(), "EURJPY")
		if !errors.Is(err, domain.ErrMissingBiasData) {
			t.Errorf("expected ErrMissingBiasData, got %v", err)
		}
	})

	t.Run("invalid pair", func(t *testing.T) {
		_, err := svc.Analyze(context.Background(), "EUR/USD")
		if !errors.Is(err, domain.ErrInvalidPair) {
			t.Errorf("expected ErrInvalidPair, got %v", err)
		}
	})
}

func TestMacroService_GenerateMock(t *testing.T) {
	var stored []*domain.MacroBias
	repo := &mockMacroRepo{
		insertBatchFunc: func(_ context.Context, biases []*domain.MacroBias) error {
			stored = biases
			return nil
		},
	}
	b := &recordingBroadcaster{}
	svc := newMacroFixture(repo, b)

	biases, err := svc.GenerateMock(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(biases) != len(domain.Currencies) || len(stored) != len(domain.Currencies) {
		t.Fatalf("generated %d, stored %d, want %d", len(biases), len(stored), len(domain.Currencies))
	}
	for _, bias := range biases {
		if bias.HeatScore < -5 || bias.HeatScore > 5 {
			t.Errorf("%s heat score %v out of range", bias.Currency, bias.HeatScore)
		}
	}
	if len(b.rooms) != 1 || b.rooms[0] != domain.RoomMacro || b.types[0] != MessageMacroUpdate {
		t.Errorf("unexpected broadcasts: %v %v", b.rooms, b.types)
	}
}

func TestMacroService_GenerateMock_StoreFailure(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockMacroRepo{
		insertBatchFunc: func(context.Context, []*domain.MacroBias) error { return boom },
	}
	b := &recordingBroadcaster{}
	svc := newMacroFixture(repo, b)

	if _, err := svc.GenerateMock(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected db error, got %v", err)
	}
	if len(b.rooms) != 0 {
		t.Error("nothing should be relayed when the batch is not stored")
	}
}

func TestMacroService_History(t *testing.T) {
	var gotSince time.Time
	repo := &mockMacroRepo{
		historyFunc: func(_ context.Context, _ string, since time.Time) ([]*domain.MacroBias, error) {
			gotSince = since
			return nil, nil
		},
	}
	svc := newMacroFixture(repo, nil)

	_, tf, err := svc.History(context.Background(), "USD", "bogus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tf != "24h" || !gotSince.Equal(time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timeframe %q since %v", tf, gotSince)
	}
}
