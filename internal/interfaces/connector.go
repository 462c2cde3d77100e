package interfaces

import "context"

// Conn is the contract shared by the command and streaming sockets.
type Conn interface {
	Connect(ctx context.Context) error
	Send(msg []byte) error
	Close() error
	IsConnected() bool
}

// RequestConn adds correlated request/response on top of Conn. Receive
// returns the next full line frame; SendReceive pairs one send with one
// receive and emits a redacted log record for the exchange.
type RequestConn interface {
	Conn
	Receive(ctx context.Context) ([]byte, error)
	SendReceive(ctx context.Context, msg []byte) ([]byte, error)
}
