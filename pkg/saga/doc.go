// Package saga provides a durable, resumable saga orchestration engine
// for long-running business workflows that span multiple remote services
// communicating through asynchronous message passing.
//
// A Saga is an ordered sequence of Steps. Each Step is local, remote, or
// conditional. Remote steps suspend execution while waiting for a reply
// from a downstream participant; the suspended SagaExecution is meant to
// be snapshotted (Raw) and persisted by the host, then rehydrated
// (SagaExecutionFromRaw) and resumed once the reply arrives. If any step
// fails, previously executed steps are compensated in reverse order.
//
// Design Influences:
//   - Clariteia/minos-microservice-saga (the implementation this package
//     was ported from)
//   - Microservices.io Saga Pattern
//   - AWS Step Functions
package saga
