package main

import (
	"context"
	"fmt"

	"github.com/kjarrow/sagaflow/pkg/saga"
)

// The demo registered under "run"/"resume" is a two-step order
// fulfillment saga: create an order, book a delivery ticket, then
// finalize.

func demoSendCreateOrder(_ context.Context, _ saga.Context, params saga.Context) (saga.Request, error) {
	itemID, _ := params.Get("item_id")
	return saga.Request{Target: "orders.create", Payload: itemID}, nil
}

func demoHandleOrderSuccess(_ context.Context, ctx saga.Context, response saga.Response, _ saga.Context) (saga.Context, error) {
	return ctx.Set("order_id", response.Payload), nil
}

func demoSendCreateTicket(_ context.Context, ctx saga.Context, _ saga.Context) (saga.Request, error) {
	orderID, _ := ctx.Get("order_id")
	return saga.Request{Target: "tickets.create", Payload: orderID}, nil
}

func demoHandleTicketSuccess(_ context.Context, ctx saga.Context, response saga.Response, _ saga.Context) (saga.Context, error) {
	return ctx.Set("ticket_id", response.Payload), nil
}

func demoFinalize(_ context.Context, ctx saga.Context, _ saga.Context) (saga.Context, error) {
	return ctx, nil
}

// demoRegistry builds the CallbackRegistry the demo saga resolves its
// operations against. resume and inspect must use the same registry a
// run used to produce the snapshot they are loading.
func demoRegistry() *saga.CallbackRegistry {
	reg := saga.NewCallbackRegistry()
	reg.Register("send_create_order", saga.RequestCallback(demoSendCreateOrder))
	reg.Register("handle_order_success", saga.ResponseCallback(demoHandleOrderSuccess))
	reg.Register("send_create_ticket", saga.RequestCallback(demoSendCreateTicket))
	reg.Register("handle_ticket_success", saga.ResponseCallback(demoHandleTicketSuccess))
	reg.Register("finalize_order", saga.CommitCallback(demoFinalize))
	return reg
}

// demoDefinition builds the committed Saga the demo registry's
// operations are wired against.
func demoDefinition() (saga.Saga, error) {
	return saga.NewSaga().
		Step().RemoteStep(saga.NewOperation("send_create_order", "item_id", "sku-42")).
		OnSuccess(saga.NewOperation("handle_order_success")).
		Step().RemoteStep(saga.NewOperation("send_create_ticket")).
		OnSuccess(saga.NewOperation("handle_ticket_success")).
		Commit(saga.NewOperation("finalize_order"))
}

// autoReplyBroker wraps an InMemoryBroker with a canned handler so `run`
// can demonstrate a saga progressing to completion without a second
// process delivering replies.
func autoReplyBroker() *saga.InMemoryBroker {
	broker := saga.NewInMemoryBroker()
	broker.Handler = func(_ context.Context, call saga.BrokerCall) error {
		fmt.Printf("  [broker] %s <- %v\n", call.Topic, call.Data)
		return nil
	}
	return broker
}
