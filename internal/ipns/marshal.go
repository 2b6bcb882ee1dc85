package ipns

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers of the wire record. These must round-trip
// byte-for-byte with any IPFS-ecosystem IPNS consumer.
const (
	fieldValue        = 1
	fieldSignatureV1  = 2
	fieldValidityType = 3
	fieldValidity     = 4
	fieldSequence     = 5
	fieldTTL          = 6
	fieldPubKey       = 7
	fieldSignatureV2  = 8
	fieldData         = 9
)

// Marshal encodes the record into its protobuf wire form.
func Marshal(r *Record) []byte {
	var b []byte
	b = appendBytesField(b, fieldValue, r.Value)
	b = appendBytesField(b, fieldSignatureV1, r.SignatureV1)
	b = protowire.AppendTag(b, fieldValidityType, protowire.VarintType)
	b = protowire.AppendVarint(b, r.ValidityType)
	b = appendBytesField(b, fieldValidity, r.Validity)
	b = protowire.AppendTag(b, fieldSequence, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Sequence)
	b = protowire.AppendTag(b, fieldTTL, protowire.VarintType)
	b = protowire.AppendVarint(b, r.TTL)
	b = appendBytesField(b, fieldPubKey, r.PubKey)
	b = appendBytesField(b, fieldSignatureV2, r.SignatureV2)
	b = appendBytesField(b, fieldData, r.Data)
	return b
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// Parse decodes a protobuf wire record. Unknown fields are skipped so newer
// producers stay readable.
func Parse(raw []byte) (*Record, error) {
	r := &Record{}
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, ErrMalformedRecord
		}
		raw = raw[n:]

		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return nil, ErrMalformedRecord
			}
			raw = raw[n:]
			cp := append([]byte(nil), v...)
			switch num {
			case fieldValue:
				r.Value = cp
			case fieldSignatureV1:
				r.SignatureV1 = cp
			case fieldValidity:
				r.Validity = cp
			case fieldPubKey:
				r.PubKey = cp
			case fieldSignatureV2:
				r.SignatureV2 = cp
			case fieldData:
				r.Data = cp
			}
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return nil, ErrMalformedRecord
			}
			raw = raw[n:]
			switch num {
			case fieldValidityType:
				r.ValidityType = v
			case fieldSequence:
				r.Sequence = v
			case fieldTTL:
				r.TTL = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return nil, ErrMalformedRecord
			}
			raw = raw[n:]
		}
	}
	if len(r.Data) == 0 || len(r.SignatureV2) == 0 {
		return nil, ErrMalformedRecord
	}
	return r, nil
}
