package mcs

import (
	"io"

	"github.com/gordp-go/dvcmux/core"
	"github.com/huin/asn1ber"
)

// connectResponseBody is the T.125 ConnectGCCPDU SEQUENCE carried inside
// the Connect-Response APPLICATION[102] wrapper.
type connectResponseBody struct {
	Result          int
	CalledConnectID int
	DomainParameters DomainParameters
	UserData        []byte
}

// ConnectResponse is the server's T.125 Connect-Response PDU.
type ConnectResponse struct {
	Result          uint8
	CalledConnectID uint32
	Negotiated      DomainParameters
	UserData        []byte
}

// Write BER-encodes and writes the Connect-Response PDU.
func (c *ConnectResponse) Write(w io.Writer) {
	body := connectResponseBody{
		Result:           int(c.Result),
		CalledConnectID:  int(c.CalledConnectID),
		DomainParameters: c.Negotiated,
		UserData:         c.UserData,
	}
	encoded, err := asn1ber.Marshal(body)
	core.ThrowError(err)
	writeApplicationTag(w, berTagConnectResponse, encoded)
}

// Read reads and BER-decodes a Connect-Response PDU.
func (c *ConnectResponse) Read(r io.Reader) {
	raw := readApplicationTag(r, berTagConnectResponse)
	var body connectResponseBody
	_, err := asn1ber.Unmarshal(raw, &body)
	core.ThrowError(err)

	c.Result = uint8(body.Result)
	c.CalledConnectID = uint32(body.CalledConnectID)
	c.Negotiated = body.DomainParameters
	c.UserData = body.UserData
}
