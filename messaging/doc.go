// Package messaging provides the message primitives exchanged over a bus.
//
// A Message is an immutable value carrier: it names the Subscriber that
// produced it, optionally the Subscriber it is addressed to, and the Category
// used to route it. The category is fixed at construction so routing is a
// direct lookup rather than inspection of the payload.
//
// # Categories
//
//   - Generic: plain message, routed only to subscribers of every category
//   - Notification: carries a short text
//   - Request: asks the target (or anyone listening) for data, described by Meta
//   - Data: delivers Data, described by Meta
//   - Terminate: begins orderly shutdown of the bus and is never delivered
//
// # Construction
//
// Messages are constructed with a fluent builder:
//
//	msg := messaging.NewData(store, viewer, "folder:inbox", mails).
//	    Headers(map[string]string{"correlation-id": req.ID}).
//	    Build()
//
// A message without a target is broadcast-eligible: targeted subscribers of
// its category receive it as well as untargeted ones.
//
// # Subscribers
//
// Subscriber is the callback contract the bus invokes from its dispatch
// goroutine. Subscriber identity is interface equality, so implementations
// must have a comparable dynamic type; pointer receivers satisfy this.
package messaging
