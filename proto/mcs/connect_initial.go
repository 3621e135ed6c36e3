package mcs

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
	"github.com/huin/asn1ber"
)

const (
	berTagConnectInitial  = 101
	berTagConnectResponse = 102
)

// connectInitialBody is the T.125 ConnectGCCPDU SEQUENCE carried inside
// the Connect-Initial APPLICATION[101] wrapper.
type connectInitialBody struct {
	CallingDomainSelector []byte
	CalledDomainSelector  []byte
	UpwardFlag            bool
	TargetParameters      DomainParameters
	MinimumParameters     DomainParameters
	MaximumParameters     DomainParameters
	UserData              []byte
}

// ConnectInitial is the client's T.125 Connect-Initial PDU. UserData is an
// opaque GCC Conference-Create-Request blob: GCC encoding itself sits
// outside this module, so callers hand it in pre-built (GCCBlockSource)
// and read it back out as bytes (GCCBlockSink) on the response side.
type ConnectInitial struct {
	CallingDomain string
	CalledDomain  string
	UpwardFlag    bool
	Target        DomainParameters
	Minimum       DomainParameters
	Maximum       DomainParameters
	UserData      []byte
}

// GCCBlockSource builds the GCC Conference-Create-Request blob to embed in
// UserData, given the caller's display/channel preferences.
type GCCBlockSource func() []byte

// GCCBlockSink consumes the GCC Conference-Create-Response blob decoded
// out of a ConnectResponse's UserData.
type GCCBlockSink func(data []byte)

// Write BER-encodes and writes the Connect-Initial PDU.
func (c *ConnectInitial) Write(w io.Writer) {
	body := connectInitialBody{
		CallingDomainSelector: []byte(c.CallingDomain),
		CalledDomainSelector:  []byte(c.CalledDomain),
		UpwardFlag:            c.UpwardFlag,
		TargetParameters:      c.Target,
		MinimumParameters:     c.Minimum,
		MaximumParameters:     c.Maximum,
		UserData:              c.UserData,
	}
	encoded, err := asn1ber.Marshal(body)
	core.ThrowError(err)
	writeApplicationTag(w, berTagConnectInitial, encoded)
}

// Read reads and BER-decodes a Connect-Initial PDU.
func (c *ConnectInitial) Read(r io.Reader) {
	raw := readApplicationTag(r, berTagConnectInitial)
	var body connectInitialBody
	_, err := asn1ber.Unmarshal(raw, &body)
	core.ThrowError(err)

	c.CallingDomain = string(body.CallingDomainSelector)
	c.CalledDomain = string(body.CalledDomainSelector)
	c.UpwardFlag = body.UpwardFlag
	c.Target = body.TargetParameters
	c.Minimum = body.MinimumParameters
	c.Maximum = body.MaximumParameters
	c.UserData = body.UserData
}
