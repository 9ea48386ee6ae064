package connection

import (
	"context"
	"fmt"
)

// Send issues the RPC over c and decodes the result into res.
// It requires `res` to be of type `*RPCResponse[T]`.
// It could be more obvious if Go allowed us to write it like:
//
//	c.Send[T](ctx, res *RPCResponse[T], method string, params ...any) error
//
// But methods cannot have type parameters, so this is a package function.
// Passing a nil res discards the result.
func Send[Result any](c Connection, ctx context.Context, res *RPCResponse[Result], method string, params ...any) error {
	rawRes, err := c.Send(ctx, method, params...)
	if err != nil {
		return err
	}

	if res == nil {
		return nil
	}

	if rawRes.ID != nil {
		res.ID = rawRes.ID
	}
	res.Error = rawRes.Error

	if rawRes.Result == nil {
		res.Result = nil
		return nil
	}

	// rawRes.Result is a cbor.RawMessage, so MarshalCBOR just hands back the
	// raw bytes; only the Result field gets decoded a second time.
	data, err := rawRes.Result.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("Send: error marshaling result: %w", err)
	}

	var r Result
	if err := c.GetUnmarshaler().Unmarshal(data, &r); err != nil {
		return fmt.Errorf("Send: error unmarshaling result: %w", err)
	}

	res.Result = &r

	return nil
}
