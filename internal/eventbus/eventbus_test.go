package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quantcapital/internal/domain"
	"quantcapital/internal/eventbus"
)

func TestBus_PublishDispatchesToSubscriber(t *testing.T) {
	b := eventbus.New(eventbus.WithQueueSize(10))

	received := make(chan domain.Event, 1)
	b.Subscribe(domain.EventMarket, "test-subscriber", func(_ context.Context, ev domain.Event) {
		received <- ev
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop(time.Second)

	ev := domain.NewMarketEvent(time.Now(), "AAPL", domain.Bar{Symbol: "AAPL"})
	if !b.Publish(ev) {
		t.Fatalf("expected publish to succeed")
	}

	select {
	case got := <-received:
		if got.Type != domain.EventMarket {
			t.Fatalf("expected EventMarket, got %s", got.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for dispatched event")
	}
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	b := eventbus.New(eventbus.WithQueueSize(10))

	var wg sync.WaitGroup
	wg.Add(2)
	b.Subscribe(domain.EventSignal, "sub-a", func(_ context.Context, _ domain.Event) { wg.Done() })
	b.Subscribe(domain.EventSignal, "sub-b", func(_ context.Context, _ domain.Event) { wg.Done() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop(time.Second)

	b.Publish(domain.NewSignalEvent(time.Now(), domain.Signal{Symbol: "AAPL"}))

	doneCh := make(chan struct{})
	go func() { wg.Wait(); close(doneCh) }()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for both subscribers to receive the event")
	}
}

func TestBus_FullSubscriberQueueDropsWithoutBlockingPublish(t *testing.T) {
	b := eventbus.New(eventbus.WithQueueSize(1))

	block := make(chan struct{})
	b.Subscribe(domain.EventTimer, "slow-subscriber", func(_ context.Context, _ domain.Event) {
		<-block
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer func() {
		close(block)
		b.Stop(time.Second)
	}()

	for i := 0; i < 5; i++ {
		b.Publish(domain.NewTimerEvent(time.Now(), "t1", time.Second))
	}
}

func TestBus_SubscribeAfterStartPanics(t *testing.T) {
	b := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop(time.Second)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic subscribing after Start")
		}
	}()
	b.Subscribe(domain.EventFill, "late", func(_ context.Context, _ domain.Event) {})
}
