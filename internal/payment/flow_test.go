package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesawallet/pesa/internal/api"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
)

type fakeGateway struct {
	mu            sync.Mutex
	initCalls     int
	verifyCalls   int
	verifyResults []model.VerificationResult
	verifyErrs    []error
	verifyGate    chan struct{} // when set, Verify blocks until released
}

func (g *fakeGateway) InitiateTopUp(_ context.Context, _ decimal.Decimal) (model.TopUpInit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	return model.TopUpInit{
		CheckoutURL: "https://checkout.example.com/x",
		Reference:   "ref-1",
	}, nil
}

func (g *fakeGateway) VerifyTopUp(_ context.Context, _ string) (model.VerificationResult, error) {
	g.mu.Lock()
	call := g.verifyCalls
	g.verifyCalls++
	gate := g.verifyGate
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if call < len(g.verifyErrs) && g.verifyErrs[call] != nil {
		return model.VerificationResult{}, g.verifyErrs[call]
	}
	if call < len(g.verifyResults) {
		return g.verifyResults[call], nil
	}
	return model.VerificationResult{Outcome: model.OutcomeAlreadyProcessed}, nil
}

type fakeQueue struct {
	mu     sync.Mutex
	topups map[string]model.PendingTopUp
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{topups: make(map[string]model.PendingTopUp)}
}

func (q *fakeQueue) EnqueueTopUp(_ context.Context, topup model.PendingTopUp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.topups[topup.Reference] = topup
	return nil
}

func (q *fakeQueue) GetTopUp(_ context.Context, reference string) (*model.PendingTopUp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	topup, ok := q.topups[reference]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &topup, nil
}

func (q *fakeQueue) ListPendingTopUps(_ context.Context) ([]model.PendingTopUp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pending []model.PendingTopUp
	for _, topup := range q.topups {
		if topup.Status == model.TopUpPending {
			pending = append(pending, topup)
		}
	}
	return pending, nil
}

func (q *fakeQueue) ResolveTopUp(_ context.Context, reference string, status model.TopUpStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	topup, ok := q.topups[reference]
	if !ok {
		return common.ErrNotFound
	}
	topup.Status = status
	q.topups[reference] = topup
	return nil
}

func fastRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestInitiateTopUpValidation(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{name: "below minimum", amount: "50"},
		{name: "zero", amount: "0"},
		{name: "negative", amount: "-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{}
			flow := New(gateway, newFakeQueue(), fastRetry())

			_, err := flow.InitiateTopUp(context.Background(), decimal.RequireFromString(tt.amount))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidAmount)

			var userErr *common.UserError
			assert.ErrorAs(t, err, &userErr, "validation failures are user errors")
			assert.Equal(t, 0, gateway.initCalls, "validation must reject before any network call")
			assert.Equal(t, StateIdle, flow.State())
		})
	}
}

func TestInitiateTopUpRecordsPending(t *testing.T) {
	gateway := &fakeGateway{}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	init, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, "ref-1", init.Reference)
	assert.Equal(t, "https://checkout.example.com/x", init.CheckoutURL)
	assert.Equal(t, StateAwaiting, flow.State())
	assert.Equal(t, "ref-1", flow.Reference())

	pending, err := flow.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "500", pending[0].Amount.String())
}

func TestVerifySuccessClearsPending(t *testing.T) {
	gateway := &fakeGateway{
		verifyResults: []model.VerificationResult{
			{Outcome: model.OutcomeSuccess, Amount: decimal.NewFromInt(500)},
		},
	}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	result, err := flow.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, result.Outcome)
	assert.Equal(t, StateVerified, flow.State())

	pending, err := flow.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "settled attempts leave the pending queue")
}

func TestVerifyIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{
		verifyResults: []model.VerificationResult{
			{Outcome: model.OutcomeSuccess, Amount: decimal.NewFromInt(500)},
			{Outcome: model.OutcomeAlreadyProcessed, Amount: decimal.NewFromInt(500)},
		},
	}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	first, err := flow.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, first.Outcome)

	second, err := flow.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyProcessed, second.Outcome)
	assert.True(t, second.Outcome.Settled(), "already_processed is a success outcome")
}

func TestVerifyDeduplicatesConcurrentTriggers(t *testing.T) {
	// Deep-link callback and manual confirmation race to verify the same
	// reference; only one backend call should happen.
	gate := make(chan struct{})
	gateway := &fakeGateway{
		verifyGate: gate,
		verifyResults: []model.VerificationResult{
			{Outcome: model.OutcomeSuccess},
		},
	}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]model.VerificationResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = flow.Verify(context.Background(), "ref-1")
		}(i)
	}

	// Let both goroutines reach the flow before releasing the backend.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Outcome.Settled())
	}
	assert.Equal(t, 1, gateway.verifyCalls, "concurrent triggers share one backend call")
}

func TestVerifyRetriesTransientErrors(t *testing.T) {
	gateway := &fakeGateway{
		verifyErrs: []error{
			&api.Error{Kind: api.KindNetwork, Message: "connection refused"},
		},
		verifyResults: []model.VerificationResult{
			{}, // consumed by the erroring first call
			{Outcome: model.OutcomeSuccess},
		},
	}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	result, err := flow.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 2, gateway.verifyCalls)
}

func TestVerifyFailureKeepsReference(t *testing.T) {
	gateway := &fakeGateway{
		verifyResults: []model.VerificationResult{
			{Outcome: model.OutcomeFailed, Message: "charge declined"},
		},
	}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	result, err := flow.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, StateFailed, flow.State())

	pending, err := flow.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1, "failed attempts stay pending for manual retry")
}

func TestAbandon(t *testing.T) {
	gateway := &fakeGateway{}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	require.NoError(t, flow.Abandon(context.Background(), "ref-1"))
	assert.Equal(t, StateIdle, flow.State())

	pending, err := flow.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNewTopUpDoesNotOrphanPrevious(t *testing.T) {
	gateway := &fakeGateway{}
	queue := newFakeQueue()
	flow := New(gateway, queue, fastRetry())

	_, err := flow.InitiateTopUp(context.Background(), decimal.NewFromInt(500))
	require.NoError(t, err)

	// fakeGateway always returns ref-1; enqueue a second attempt manually
	// to simulate a fresh reference.
	require.NoError(t, queue.EnqueueTopUp(context.Background(), model.PendingTopUp{
		Reference: "ref-2",
		Amount:    decimal.NewFromInt(300),
		Status:    model.TopUpPending,
		CreatedAt: time.Now(),
	}))

	pending, err := flow.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 2, "older attempts stay listable until resolved")
}
