package transport

import "context"

// Connection is one client's transport. Frames delivers inbound audio in
// arrival order; Send serializes outbound envelopes. Implementations must
// make Close idempotent and safe to call concurrently with Send.
type Connection interface {
	Send(ctx context.Context, msg ServerMessage) error
	Frames() <-chan InboundFrame
	IsConnected() bool
	Close() error
}
