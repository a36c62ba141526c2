// Package bus provides an in-process publish/subscribe mediator.
//
// Subscribers exchange messages without holding references to each other:
// any goroutine posts to the bus, and a single dispatcher goroutine delivers
// each message, in posting order, to the subscribers that registered for it.
//
// # Registration
//
// A subscriber registers in one or more category lists, each time with a
// Mode:
//
//	b, err := bus.New(ctx, config.DefaultBusConfig())
//
//	b.RegisterAll(logger, bus.ModeAny)               // every routed message
//	b.RegisterNotification(viewer, bus.ModeTargeted) // untargeted notifications and those addressed to viewer
//	b.RegisterRequest(store, bus.ModeTargeted)
//	b.RegisterData(viewer, bus.ModeTargeted)
//
// ModeAny receives every message of the list's category. ModeTargeted
// receives a message only when it has no target or targets the subscriber.
//
// # Routing
//
// Every message is delivered against the "all" list first and then, for
// notification, request and data messages, against that category's list.
// A subscriber registered in both lists receives the message twice, and a
// subscriber registered twice in one list receives it twice from that list.
// Register in a single list to get a single delivery.
//
// # Posting
//
//	b.Post(messaging.NewRequest(viewer, store, "folders").Build())
//
// Post never blocks and never delivers synchronously; it returns false for
// a nil or invalid message or once the bus has stopped.
//
// # Unregistration
//
// Unregister calls take effect at once for delivery purposes but are applied
// to the lists by the dispatcher on its next iteration. Subscribers may
// therefore unregister themselves, or register others, from inside Deliver
// or Shutdown.
//
// # Shutdown
//
// Posting a terminate message moves the bus from running to draining and
// calls Shutdown once on every registered subscriber. The bus keeps routing
// queued messages while draining and stops once every list is empty:
//
//	func (v *Viewer) Shutdown(ctx context.Context) error {
//	    v.bus.UnregisterAll(v)
//	    v.bus.UnregisterData(v)
//	    return nil
//	}
//
//	b.Terminate(v)
//	err := b.Wait(ctx)
//
// A subscriber that never unregisters keeps the bus draining.
//
// # Failures
//
// BusConfig.FailurePolicy selects what happens when Deliver or Shutdown
// returns an error or panics. The isolate policy reports the failure and
// carries on with the next subscriber. The fail-fast policy stops the
// dispatcher and reports the failure through Err and Wait.
//
// # Concurrency
//
// All callbacks run on the dispatcher goroutine, so subscribers need no
// locking against the bus, but they must not assume they run on the
// goroutine that posted the message. Only the dispatcher removes entries
// from the subscription lists; producers only append.
package bus
