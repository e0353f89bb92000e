package price

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/date"
	"github.com/shopspring/decimal"
)

var btc = cryptotax.Token{Symbol: "BTC", Chain: "bitcoin"}

// stubProvider answers with the results in order, then the last one forever.
type stubProvider struct {
	calls   atomic.Int32
	gate    chan struct{} // when set, calls wait for it to close
	results []error
	value   decimal.Decimal
}

func (p *stubProvider) next(ctx context.Context) (decimal.Decimal, error) {
	n := int(p.calls.Add(1)) - 1
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	if len(p.results) > 0 {
		err := p.results[min(n, len(p.results)-1)]
		if err != nil {
			return decimal.Zero, err
		}
	}
	return p.value, nil
}

func (p *stubProvider) Price(ctx context.Context, _ cryptotax.Token, _ date.Date) (decimal.Decimal, error) {
	return p.next(ctx)
}

func (p *stubProvider) Rate(ctx context.Context, _, _ string, _ date.Date) (decimal.Decimal, error) {
	return p.next(ctx)
}

// mapStore is an in memory Store.
type mapStore struct {
	mu sync.Mutex
	m  map[string]decimal.Decimal
}

func (s *mapStore) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *mapStore) Put(_ context.Context, key string, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		s.m[key] = value
	}
	return nil
}

var day = time.Date(2023, 8, 1, 15, 30, 0, 0, time.UTC)

func TestResolver_SingleFlight(t *testing.T) {
	p := &stubProvider{value: decimal.NewFromInt(29000), gate: make(chan struct{})}
	r := NewResolver(p, nil, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.Resolve(context.Background(), btc, day)
			if err == nil && !v.Equal(p.value) {
				err = errors.New("wrong value " + v.String())
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(p.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Resolve() error = %v", err)
		}
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}

	// other times of the same day hit the cache.
	if _, err := r.Resolve(context.Background(), btc, day.Add(-15*time.Hour)); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d after a cached read, want 1", got)
	}
}

func TestResolver_Retries(t *testing.T) {
	unavailable := &StatusError{Code: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	badRequest := &StatusError{Code: http.StatusBadRequest, Status: "400 Bad Request"}

	tests := []struct {
		name      string
		results   []error
		retries   int
		wantCalls int32
		wantErr   error
	}{
		{name: "success", results: []error{nil}, retries: 3, wantCalls: 1},
		{name: "retry then success", results: []error{unavailable, unavailable, nil}, retries: 3, wantCalls: 3},
		{name: "retries exhausted", results: []error{unavailable}, retries: 2, wantCalls: 3, wantErr: cryptotax.ErrPriceUnavailable},
		{name: "not found is final", results: []error{cryptotax.ErrPriceNotFound}, retries: 3, wantCalls: 1, wantErr: cryptotax.ErrPriceNotFound},
		{name: "client error is final", results: []error{badRequest}, retries: 3, wantCalls: 1, wantErr: cryptotax.ErrPriceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProvider{value: decimal.NewFromInt(7), results: tc.results}
			r := NewResolver(p, nil, Options{Retries: tc.retries, Backoff: time.Millisecond})
			v, err := r.Resolve(context.Background(), btc, day)
			if tc.wantErr == nil {
				if err != nil || !v.Equal(decimal.NewFromInt(7)) {
					t.Errorf("Resolve() = %v, %v, want 7", v, err)
				}
			} else if !errors.Is(err, tc.wantErr) || !errors.Is(err, cryptotax.ErrPriceUnavailable) {
				t.Errorf("Resolve() error = %v, want %v", err, tc.wantErr)
			}
			if got := p.calls.Load(); got != tc.wantCalls {
				t.Errorf("provider calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestResolver_RemembersFailures(t *testing.T) {
	unavailable := &StatusError{Code: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	p := &stubProvider{results: []error{unavailable}}
	r := NewResolver(p, nil, Options{Retries: 2, Backoff: time.Millisecond})
	for i := 0; i < 5; i++ {
		if _, err := r.Resolve(context.Background(), btc, day); !errors.Is(err, cryptotax.ErrPriceUnavailable) {
			t.Errorf("Resolve() #%d error = %v, want ErrPriceUnavailable", i, err)
		}
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("provider calls = %d, want 3", got)
	}

	// a cancelled lookup is not a failure of the key.
	p = &stubProvider{value: decimal.NewFromInt(7), gate: make(chan struct{})}
	r = NewResolver(p, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, btc, day); err == nil {
		t.Fatalf("Resolve() with a cancelled context succeeded")
	}
	close(p.gate)
	if v, err := r.Resolve(context.Background(), btc, day); err != nil || !v.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Resolve() after a cancelled lookup = %v, %v, want 7", v, err)
	}
}

func TestResolver_Timeout(t *testing.T) {
	p := &stubProvider{gate: make(chan struct{})} // never opens
	r := NewResolver(p, nil, Options{Timeout: 10 * time.Millisecond})
	_, err := r.Resolve(context.Background(), btc, day)
	if !errors.Is(err, cryptotax.ErrPriceUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Resolve() error = %v, want a timeout", err)
	}
}

func TestResolver_Store(t *testing.T) {
	key := priceKey(btc, date.FromTime(day))
	store := &mapStore{m: map[string]decimal.Decimal{key: decimal.NewFromInt(123)}}
	p := &stubProvider{value: decimal.NewFromInt(1)}
	r := NewResolver(p, p, Options{Store: store})

	v, err := r.Resolve(context.Background(), btc, day)
	if err != nil || !v.Equal(decimal.NewFromInt(123)) {
		t.Errorf("Resolve() = %v, %v, want the stored 123", v, err)
	}
	if p.calls.Load() != 0 {
		t.Errorf("provider called for a stored price")
	}

	if _, err := r.Rate(context.Background(), "usd", "eur", day); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if _, ok := store.m[rateKey("USD", "EUR", date.FromTime(day))]; !ok {
		t.Errorf("fetched rate not written to the store: %v", store.m)
	}
}

func TestResolver_Fiat(t *testing.T) {
	rates := NewStatic().SetRate("USD", "EUR", date.FromTime(day), decimal.RequireFromString("0.8"))
	r := NewResolver(nil, rates, Options{})

	if v, err := r.Rate(context.Background(), "EUR", "eur", day); err != nil || !v.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Rate(EUR, EUR) = %v, %v, want 1", v, err)
	}
	if v, err := r.Resolve(context.Background(), cryptotax.Fiat("EUR"), day); err != nil || !v.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("Resolve(EUR) = %v, %v, want 1.25 USD", v, err)
	}
	if v, err := r.Convert(context.Background(), decimal.NewFromInt(10), day, "EUR"); err != nil || !v.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Convert(10 USD, EUR) = %v, %v, want 8", v, err)
	}
	if _, err := r.Resolve(context.Background(), btc, day); !errors.Is(err, cryptotax.ErrPriceUnavailable) {
		t.Errorf("Resolve(BTC) without provider error = %v, want ErrPriceUnavailable", err)
	}
}
