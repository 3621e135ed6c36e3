package dvcman

import "errors"

// Exit conditions from spec.md §6: "Handshake failure returns an error
// code from the set {BadInitHandle, InitializationError, AlreadyConnected,
// TooManyChannels, ConnectFailed, NegotiationFailed}" plus the per-verb
// failure modes of spec.md §4.10's facade table.
var (
	ErrBadInitHandle      = errors.New("dvcman: bad init handle")
	ErrInitializationError = errors.New("dvcman: initialization error")
	ErrAlreadyConnected   = errors.New("dvcman: already connected")
	ErrTooManyChannels    = errors.New("dvcman: too many channels")
	ErrConnectFailed      = errors.New("dvcman: connect failed")
	ErrNegotiationFailed  = errors.New("dvcman: negotiation failed")

	ErrUnknownChannelName = errors.New("dvcman: unknown channel name")
	ErrAlreadyOpen        = errors.New("dvcman: channel already open")
	ErrUnknownChannel     = errors.New("dvcman: unknown channel handle")
	ErrNotOpen            = errors.New("dvcman: channel not open")
)
