package mcs

import (
	"io"

	"github.com/gordp-go/dvcmux/proto/mcs/per"
)

// Domain MCS PDU types, ITU-T T.125 §7, part of the CHOICE index written
// by WriteMcsPduHeader/read by ReadMcsPduHeader.
const (
	MCS_PDUTYPE_CONNECT_INITIAL          = 101
	MCS_PDUTYPE_CONNECT_RESPONSE         = 102
	MCS_PDUTYPE_ERECT_DOMAIN_REQUEST     = 1
	MCS_PDUTYPE_DISCONNECT_PROVIDER_ULT  = 8
	MCS_PDUTYPE_ATTACH_USER_REQUEST      = 10
	MCS_PDUTYPE_ATTACH_USER_CONFIRM      = 11
	MCS_PDUTYPE_CHANNEL_JOIN_REQUEST     = 14
	MCS_PDUTYPE_CHANNEL_JOIN_CONFIRM     = 15
	MCS_PDUTYPE_SEND_DATA_REQUEST        = 25
	MCS_PDUTYPE_SEND_DATA_INDICATION     = 26
)

// MCS_CHANNEL_USERID_BASE is the bias subtracted/added when encoding a
// UserId as a constrained PER INTEGER16 (ITU-T T.125 §7, MCS_BASE_CHANNEL_ID
// in the reference implementation).
const MCS_CHANNEL_USERID_BASE = 1001

// WriteMcsPduHeader writes a domain MCS PDU header: a single CHOICE octet
// combining the PDU type with the 2-bit options field (used for RESULT/ASE
// flags on a handful of PDU types; 0 for the rest).
func WriteMcsPduHeader(w io.Writer, pduType uint8, options uint8) {
	per.WriteChoice(w, (pduType<<2)|options)
}

// ReadMcsPduHeader reads a domain MCS PDU header and returns the PDU type,
// discarding the options bits (callers that need them decode the lower 2
// bits of the raw choice byte themselves, none of the PDUs this module
// handles do).
func ReadMcsPduHeader(r io.Reader) uint8 {
	return per.ReadChoice(r) >> 2
}
