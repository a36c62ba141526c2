package bus

import "github.com/tailored-agentic-units/mediator/observability"

// Bus event types emitted through the configured observer.
const (
	EventBusStart             observability.EventType = "bus.start"
	EventBusDraining          observability.EventType = "bus.draining"
	EventBusStop              observability.EventType = "bus.stop"
	EventMessagePost          observability.EventType = "message.post"
	EventMessageReject        observability.EventType = "message.reject"
	EventMessageDispatch      observability.EventType = "message.dispatch"
	EventSubscriberRegister   observability.EventType = "subscriber.register"
	EventSubscriberUnregister observability.EventType = "subscriber.unregister"
	EventSubscriberRemove     observability.EventType = "subscriber.remove"
	EventSubscriberShutdown   observability.EventType = "subscriber.shutdown"
	EventSubscriberFailure    observability.EventType = "subscriber.failure"
)
