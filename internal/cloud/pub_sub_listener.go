// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud
// services. This file defines the Pub/Sub listener that feeds clip
// submissions into a processing command. The subscription's receiver
// concurrency is the worker pool: independent messages process in
// parallel, while each message runs its chain strictly sequentially.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener connects one subscription to one processing command.
// Every message acks after its command runs, success or not: the task
// record is the source of truth for failures, and a failed run never
// re-queues. Only a crashed worker leaves a message for redelivery.
type PubSubListener struct {
	client         *pubsub.Client
	subscription   *pubsub.Subscription
	command        cor.Command
	maxOutstanding int
}

// NewPubSubListener creates a listener for the subscription. The command
// may be nil at construction and attached later via SetCommand once the
// workflow chain is assembled.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command. A command that is already
// set is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// SetMaxOutstanding caps how many messages process concurrently. Zero
// leaves the client default in place.
func (m *PubSubListener) SetMaxOutstanding(n int) {
	m.maxOutstanding = n
	if n > 0 {
		m.subscription.ReceiveSettings.MaxOutstandingMessages = n
	}
}

// Listen starts receiving in a background goroutine. Cancelling ctx
// stops the receive loop; in-flight messages finish first.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening for submissions", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))
			defer span.End()

			chainCtx := cor.NewBaseContext()
			defer chainCtx.Close()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			// Ack either way. A failed run is terminal; the task record
			// carries the error and nothing should redeliver the message.
			msg.Ack()

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				return
			}
			span.SetStatus(codes.Error, "failed")
			for name, e := range chainCtx.GetErrors() {
				slog.Error("error executing chain", "command", name, "error", e)
			}
		})
		if err != nil {
			slog.Error("error receiving data", "error", err)
		}
	}()
}
