package models

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorDecodesTextualForm(t *testing.T) {
	data, err := cbor.Marshal("w7x7r-cok77-xa")
	require.NoError(t, err)

	var a Author
	require.NoError(t, a.UnmarshalCBOR(data))
	assert.Equal(t, "w7x7r-cok77-xa", a.Text())
}

func TestAuthorDecodesRawPrincipal(t *testing.T) {
	raw := []byte{0xab, 0xcd, 0x01, 0x02, 0x03}
	data, err := cbor.Marshal(raw)
	require.NoError(t, err)

	var a Author
	require.NoError(t, a.UnmarshalCBOR(data))

	text := a.Text()
	assert.NotEmpty(t, text)
	assert.Contains(t, text, "-")
	assert.Equal(t, AuthorFromPrincipal(raw).Text(), text)
}

func TestAuthorRoundTripsPrincipalBytes(t *testing.T) {
	a := AuthorFromPrincipal([]byte{0x01, 0x02, 0x03})
	data, err := a.MarshalCBOR()
	require.NoError(t, err)

	var back Author
	require.NoError(t, back.UnmarshalCBOR(data))
	assert.Equal(t, a.Text(), back.Text())
}

func TestAuthorEmpty(t *testing.T) {
	assert.Equal(t, "", Author{}.Text())
}

func TestPostDecodesWithEitherAuthorEncoding(t *testing.T) {
	for name, author := range map[string]any{
		"textual":   "aaaaa-aa",
		"principal": []byte{0x04, 0x05},
	} {
		t.Run(name, func(t *testing.T) {
			data, err := cbor.Marshal(map[string]any{
				"id":        uint64(7),
				"title":     "hello",
				"body":      "<p>hi</p>",
				"author":    author,
				"timestamp": int64(1700000000000000000),
				"category":  "general",
			})
			require.NoError(t, err)

			var p Post
			require.NoError(t, cbor.Unmarshal(data, &p))
			assert.Equal(t, PostID(7), p.ID)
			assert.NotEmpty(t, p.Author.Text())
		})
	}
}

func TestTimestampTime(t *testing.T) {
	ts := Timestamp(1700000000000000000)
	assert.Equal(t, time.Unix(0, 1700000000000000000), ts.Time())
}
