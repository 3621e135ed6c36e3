package mcs

import (
	"github.com/gordp-go/dvcmux/core"
	"github.com/huin/asn1ber"
)

// DomainParameters is the T.125 DomainParameters SEQUENCE carried inside
// Connect-Initial (as Target/Minimum/Maximum) and Connect-Response (as
// the negotiated set), BER-encoded with asn1ber the way the teacher's
// core/stream.go used it for its one confirmed call site.
type DomainParameters struct {
	MaxChannelIds   int `asn1:"optional"`
	MaxUserIds      int `asn1:"optional"`
	MaxTokenIds     int `asn1:"optional"`
	NumPriorities   int `asn1:"optional"`
	MinThroughput   int `asn1:"optional"`
	MaxHeight       int `asn1:"optional"`
	MaxMCSPDUSize   int `asn1:"optional"`
	ProtocolVersion int `asn1:"optional"`
}

// DefaultClientDomainParameters are the Target values a client offers, the
// numbers libfreerdp's mcs_init_domain_parameters uses.
func DefaultClientDomainParameters() DomainParameters {
	return DomainParameters{
		MaxChannelIds:   34,
		MaxUserIds:      2,
		MaxTokenIds:     0,
		NumPriorities:   1,
		MinThroughput:   0,
		MaxHeight:       1,
		MaxMCSPDUSize:   0xffff,
		ProtocolVersion: 2,
	}
}

// Marshal BER-encodes the DomainParameters SEQUENCE.
func (d DomainParameters) Marshal() []byte {
	data, err := asn1ber.Marshal(d)
	core.ThrowError(err)
	return data
}

// UnmarshalDomainParameters decodes a DomainParameters SEQUENCE, returning
// the remaining unread bytes the way asn1.Unmarshal does.
func UnmarshalDomainParameters(data []byte) (DomainParameters, []byte) {
	var d DomainParameters
	rest, err := asn1ber.Unmarshal(data, &d)
	core.ThrowError(err)
	return d, rest
}
