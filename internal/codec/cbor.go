package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR implements Marshaler and Unmarshaler using fxamacker/cbor with the
// options the BlockPress wire protocol expects: integer epoch timestamps,
// duplicate map keys rejected, invalid UTF-8 rejected.
type CBOR struct {
	em cbor.EncMode
	dm cbor.DecMode
}

func NewCBOR() *CBOR {
	em, err := cbor.EncOptions{
		Time: cbor.TimeUnix,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	dm, err := cbor.DecOptions{
		TimeTag:   cbor.DecTagOptional,
		UTF8:      cbor.UTF8RejectInvalid,
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return &CBOR{em: em, dm: dm}
}

func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.em.Marshal(v)
}

func (c *CBOR) Unmarshal(data []byte, dst any) error {
	return c.dm.Unmarshal(data, dst)
}
