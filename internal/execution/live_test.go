package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantcapital/internal/clock"
	"quantcapital/internal/domain"
	"quantcapital/internal/execution"
)

type fakeBroker struct {
	submitErr error
	fill      domain.Fill
	cancelErr error
	submitted int
	cancelled int
}

func (b *fakeBroker) SubmitOrder(ctx context.Context, order *domain.Order) (domain.Fill, error) {
	b.submitted++
	if b.submitErr != nil {
		return domain.Fill{}, b.submitErr
	}
	return b.fill, nil
}

func (b *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	b.cancelled++
	return b.cancelErr
}

func mustOrder(t *testing.T, qty int, price float64) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder("order-1", "AAPL", domain.DirectionBuy, domain.OrderTypeLimit, qty, price, "", time.Now())
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	return o
}

func TestLiveExecutorSubmitPublishesFill(t *testing.T) {
	broker := &fakeBroker{fill: domain.Fill{FillID: "f1", OrderID: "order-1", Symbol: "AAPL", Side: domain.DirectionBuy, Quantity: 100, Price: 10}}
	var published []domain.Event
	publish := func(e domain.Event) bool {
		published = append(published, e)
		return true
	}
	exec := execution.NewLiveExecutor(broker, execution.DefaultLiveGateConfig(), publish)

	ctx := clock.WithClock(context.Background(), clock.SystemClock{})
	order := mustOrder(t, 100, 10)
	if err := exec.Submit(ctx, order); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if broker.submitted != 1 {
		t.Fatalf("expected broker.SubmitOrder called once, got %d", broker.submitted)
	}
	if len(published) != 1 {
		t.Fatalf("expected one FILL event published, got %d", len(published))
	}
}

func TestLiveExecutorRejectsOverMaxOrderValue(t *testing.T) {
	broker := &fakeBroker{fill: domain.Fill{FillID: "f1", OrderID: "order-1", Symbol: "AAPL", Quantity: 100, Price: 10}}
	exec := execution.NewLiveExecutor(broker, execution.LiveGateConfig{MaxOrderValue: 500, MaxDailyOrders: 10}, func(domain.Event) bool { return true })

	ctx := clock.WithClock(context.Background(), clock.SystemClock{})
	order := mustOrder(t, 100, 10) // notional 1000 > 500
	if err := exec.Submit(ctx, order); err == nil {
		t.Fatalf("expected a max-order-value gate rejection")
	}
	if broker.submitted != 0 {
		t.Fatalf("expected the broker to never be called once a pre-submit gate fails")
	}
}

func TestLiveExecutorRejectsOverMaxDailyOrders(t *testing.T) {
	broker := &fakeBroker{fill: domain.Fill{FillID: "f1", OrderID: "order-1", Symbol: "AAPL", Quantity: 100, Price: 10}}
	exec := execution.NewLiveExecutor(broker, execution.LiveGateConfig{MaxOrderValue: 100000, MaxDailyOrders: 1}, func(domain.Event) bool { return true })

	ctx := clock.WithClock(context.Background(), clock.SystemClock{})
	if err := exec.Submit(ctx, mustOrder(t, 100, 10)); err != nil {
		t.Fatalf("first submit should pass gates: %v", err)
	}
	if err := exec.Submit(ctx, mustOrder(t, 100, 10)); err == nil {
		t.Fatalf("expected the second submit same day to hit the daily order cap")
	}
}

func TestLiveExecutorCancelForwardsToBroker(t *testing.T) {
	broker := &fakeBroker{cancelErr: errors.New("boom")}
	exec := execution.NewLiveExecutor(broker, execution.DefaultLiveGateConfig(), func(domain.Event) bool { return true })

	err := exec.Cancel(context.Background(), "order-1")
	if err == nil {
		t.Fatalf("expected the broker's cancel error to surface")
	}
	if broker.cancelled != 1 {
		t.Fatalf("expected CancelOrder called once, got %d", broker.cancelled)
	}
}
