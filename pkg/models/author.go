package models

import (
	"encoding/base32"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Author references the principal that wrote a post. Deployments differ in
// how they encode it on the wire: older revisions return the raw principal
// as a byte string, newer ones return its textual form. Author decodes both
// and always renders text.
type Author struct {
	text      string
	principal []byte
}

// AuthorFromText builds an Author from an already-textual reference.
func AuthorFromText(s string) Author {
	return Author{text: s}
}

// AuthorFromPrincipal builds an Author from raw principal bytes.
func AuthorFromPrincipal(p []byte) Author {
	return Author{principal: p}
}

// Text renders the author reference. Raw principals are rendered in the
// canonical dashed base32 form.
func (a Author) Text() string {
	if a.text != "" {
		return a.text
	}
	if len(a.principal) == 0 {
		return ""
	}
	enc := strings.ToLower(principalEncoding.EncodeToString(a.principal))
	var groups []string
	for len(enc) > 5 {
		groups = append(groups, enc[:5])
		enc = enc[5:]
	}
	groups = append(groups, enc)
	return strings.Join(groups, "-")
}

func (a *Author) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err == nil {
		a.text = s
		a.principal = nil
		return nil
	}

	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	a.text = ""
	a.principal = b
	return nil
}

func (a Author) MarshalCBOR() ([]byte, error) {
	if a.principal != nil {
		return cbor.Marshal(a.principal)
	}
	return cbor.Marshal(a.text)
}
