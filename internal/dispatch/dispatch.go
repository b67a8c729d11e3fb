// Package dispatch fans newly stored values out to every subscription
// whose attribute set they touch. Deliveries are independent failure
// domains: one service being down, slow or hostile never affects the
// others.
package dispatch

import (
	"context"
	"sync"

	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Syncer is the slice of the sync client the dispatcher needs.
type Syncer interface {
	PushValues(ctx context.Context, service *models.Service, subscription *models.Subscription, values []remote.ValuePayload) error
}

// Reporter receives per-subscription delivery failures. Production
// wiring notifies operators; tests collect.
type Reporter interface {
	Report(ctx context.Context, subscription *models.Subscription, err error)
}

// Dispatcher routes batches of new values to subscriptions.
type Dispatcher struct {
	subscriptions repository.SubscriptionRepository
	services      repository.ServiceRepository
	syncer        Syncer
	reporter      Reporter
	workers       int
}

func New(
	subscriptions repository.SubscriptionRepository,
	services repository.ServiceRepository,
	syncer Syncer,
	reporter Reporter,
	workers int,
) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		subscriptions: subscriptions,
		services:      services,
		syncer:        syncer,
		reporter:      reporter,
		workers:       workers,
	}
}

// HandleNewValues delivers the relevant subset of newValues to each
// subscription covering any of their monitored attributes, exactly once
// per subscription. A delivery failure is reported and skipped; it
// never aborts the remaining deliveries and never surfaces as an error
// from this call.
func (d *Dispatcher) HandleNewValues(ctx context.Context, newValues []*models.Value) error {
	if len(newValues) == 0 {
		return nil
	}

	attrIDs := distinctAttributeIDs(newValues)
	subscriptions, err := d.subscriptions.ListByMonitoredAttributes(ctx, attrIDs)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for _, subscription := range subscriptions {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub *models.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			d.deliver(ctx, sub, newValues)
		}(subscription)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, subscription *models.Subscription, newValues []*models.Value) {
	payloads := []remote.ValuePayload{}
	for _, v := range newValues {
		if subscription.Contains(v.MonitoredAttributeID) {
			payloads = append(payloads, remote.ValuePayload{
				Attribute: v.MonitoredAttributeID,
				Value:     v.Value,
				Timestamp: v.CreatedAt,
			})
		}
	}
	if len(payloads) == 0 {
		return
	}

	service, err := d.services.Get(ctx, subscription.ServiceID)
	if err != nil {
		d.report(ctx, subscription, err)
		return
	}

	if err := d.syncer.PushValues(ctx, service, subscription, payloads); err != nil {
		d.report(ctx, subscription, err)
		return
	}
	nuts.L.Debugf("[Dispatcher] Delivered %d values to subscription %s", len(payloads), subscription.UUID)
}

func (d *Dispatcher) report(ctx context.Context, subscription *models.Subscription, err error) {
	nuts.L.Errorf("[Dispatcher] Delivery failed for subscription %s: %v", subscription.UUID, err)
	if d.reporter != nil {
		d.reporter.Report(ctx, subscription, err)
	}
}

func distinctAttributeIDs(values []*models.Value) []string {
	seen := make(map[string]bool, len(values))
	ids := []string{}
	for _, v := range values {
		if !seen[v.MonitoredAttributeID] {
			seen[v.MonitoredAttributeID] = true
			ids = append(ids, v.MonitoredAttributeID)
		}
	}
	return ids
}
