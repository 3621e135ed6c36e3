package x224

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gordp-go/dvcmux/core"
)

// Protocol is the RDP_NEG_REQ/RSP requestedProtocols/selectedProtocol
// bitmask (MS-RDPBCGR 2.2.1.1.1).
type Protocol uint32

const (
	PROTOCOL_RDP    Protocol = 0x00000000
	PROTOCOL_TLS    Protocol = 0x00000001
	PROTOCOL_HYBRID Protocol = 0x00000002
	PROTOCOL_RDSTLS Protocol = 0x00000004
)

// Negotiation sub-PDU types, MS-RDPBCGR 2.2.1.1/2.2.1.2.
const (
	typeNegReq     = 0x01
	typeNegRsp     = 0x02
	typeNegFailure = 0x03
)

// FailureCode is the failureCode field of an RDP_NEG_FAILURE.
type FailureCode uint32

const (
	SSL_REQUIRED_BY_SERVER             FailureCode = 1
	SSL_NOT_ALLOWED_BY_SERVER          FailureCode = 2
	SSL_CERT_NOT_ON_SERVER             FailureCode = 3
	INCONSISTENT_FLAGS                 FailureCode = 4
	HYBRID_REQUIRED_BY_SERVER          FailureCode = 5
	SSL_WITH_USER_AUTH_REQUIRED_BY_SVR FailureCode = 6
)

// Request is RDP_NEG_REQ, embedded in the Connection Request TPDU.
type Request struct {
	Flags              uint8
	RequestedProtocols Protocol
}

func (n *Request) Write(w io.Writer) {
	core.WriteBE(w, uint8(typeNegReq))
	core.WriteBE(w, n.Flags)
	core.WriteBE(w, uint16(8)) // length, always 8
	core.WriteLE(w, uint32(n.RequestedProtocols))
}

func (n *Request) Read(r io.Reader) {
	var length uint16
	core.ReadBE(r, &n.Flags)
	core.ReadBE(r, &length)
	var proto uint32
	core.ReadLE(r, &proto)
	n.RequestedProtocols = Protocol(proto)
}

// Response is RDP_NEG_RSP, embedded in the Connection Confirm TPDU.
type Response struct {
	Flags            uint8
	SelectedProtocol Protocol
}

func (n *Response) Write(w io.Writer) {
	core.WriteBE(w, uint8(typeNegRsp))
	core.WriteBE(w, n.Flags)
	core.WriteBE(w, uint16(8))
	core.WriteLE(w, uint32(n.SelectedProtocol))
}

func (n *Response) Read(r io.Reader) {
	var length uint16
	core.ReadBE(r, &n.Flags)
	core.ReadBE(r, &length)
	var proto uint32
	core.ReadLE(r, &proto)
	n.SelectedProtocol = Protocol(proto)
}

// Failure is RDP_NEG_FAILURE, sent instead of an RDP_NEG_RSP when the
// server can't honor any requested protocol.
type Failure struct {
	Flags uint8
	Code  FailureCode
}

func (n *Failure) Write(w io.Writer) {
	core.WriteBE(w, uint8(typeNegFailure))
	core.WriteBE(w, n.Flags)
	core.WriteBE(w, uint16(8))
	core.WriteLE(w, uint32(n.Code))
}

func (n *Failure) Read(r io.Reader) {
	var length uint16
	core.ReadBE(r, &n.Flags)
	core.ReadBE(r, &length)
	var code uint32
	core.ReadLE(r, &code)
	n.Code = FailureCode(code)
}

func (n *Failure) Error() string {
	return fmt.Sprintf("x224: negotiation failed, code %d", n.Code)
}

// NegotiateState is a node in the client-side negotiation state machine:
// which protocol to try next given what the server just refused.
type NegotiateState int

const (
	StateInitial NegotiateState = iota
	StateHybrid
	StateTLS
	StateRDP
	StateFinal
	StateFail
)

// NegotiationOptions is the set of protocols the caller is willing to try,
// mirrored from config.SecurityConfig.
type NegotiationOptions struct {
	RDP    bool
	TLS    bool
	Hybrid bool
}

// NextState runs one step of the negotiation fallback ladder:
// Hybrid (NLA) -> TLS -> plain RDP, stopping at StateFail once every
// protocol the caller enabled has been refused.
func NextState(current NegotiateState, failure *Failure, enabled NegotiationOptions) NegotiateState {
	if failure == nil {
		return StateFinal
	}
	switch current {
	case StateInitial, StateHybrid:
		if enabled.TLS {
			return StateTLS
		}
		if enabled.RDP {
			return StateRDP
		}
		return StateFail
	case StateTLS:
		if enabled.RDP {
			return StateRDP
		}
		return StateFail
	default:
		return StateFail
	}
}

// WriteConnectionRequest writes an X.224 Connection Request TPDU carrying
// an optional cookie line and RDP_NEG_REQ, the way
// tpdu_write_connection_request builds the frame before appending
// negotiation data.
func WriteConnectionRequest(w io.Writer, cookie string, neg *Request) {
	var body bytes.Buffer
	if cookie != "" {
		fmt.Fprintf(&body, "Cookie: mstshash=%s\r\n", cookie)
	}
	if neg != nil {
		neg.Write(&body)
	}
	writeFrame(w, TPDU_CONNECTION_REQUEST, body.Bytes())
}

// ReadConnectionConfirm reads an X.224 Connection Confirm TPDU and decodes
// whichever negotiation sub-PDU follows it, returning exactly one of
// (*Response, *Failure) non-nil. A confirm with no negotiation data is
// reported as a Response selecting PROTOCOL_RDP.
func ReadConnectionConfirm(r io.Reader) (*Response, *Failure) {
	code, payload := ReadAny(r)
	core.ThrowIf(code != TPDU_CONNECTION_CONFIRM, "x224: expected connection confirm TPDU")
	br := bytes.NewReader(payload)
	if br.Len() == 0 {
		return &Response{SelectedProtocol: PROTOCOL_RDP}, nil
	}

	var negType uint8
	core.ReadBE(br, &negType)
	switch negType {
	case typeNegRsp:
		resp := &Response{}
		resp.Read(br)
		return resp, nil
	case typeNegFailure:
		fail := &Failure{}
		fail.Read(br)
		return nil, fail
	default:
		core.ThrowErrorf("x224: unknown negotiation sub-pdu type %d", negType)
		return nil, nil
	}
}
