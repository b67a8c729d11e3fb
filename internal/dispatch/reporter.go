package dispatch

import (
	"context"

	"github.com/aptsense/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// EventReporter forwards delivery failures onto an event emitter so
// operator hooks (monitoring, alert mail) can subscribe without the
// dispatcher knowing about them.
type EventReporter struct {
	events *nuts.EventEmitter
}

func NewEventReporter() *EventReporter {
	return &EventReporter{events: nuts.NewEventEmitter()}
}

func (r *EventReporter) Report(_ context.Context, subscription *models.Subscription, err error) {
	r.events.Emit("sync.failed", subscription.ID, subscription.ServiceID, err.Error())
}

// OnFailure registers a callback invoked for every failed delivery.
func (r *EventReporter) OnFailure(handler func(subscriptionID, serviceID, message string)) {
	r.events.On("sync.failed", "sync_failure_handler", func(args ...interface{}) {
		if len(args) < 3 {
			return
		}
		subID, ok1 := args[0].(string)
		svcID, ok2 := args[1].(string)
		msg, ok3 := args[2].(string)
		if ok1 && ok2 && ok3 {
			handler(subID, svcID, msg)
		}
	})
}
