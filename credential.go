package docindex

import (
	"encoding/json"
	"log/slog"
)

// Credential is an API bearer token. It is forwarded to the remote API and
// nowhere else: every formatting path masks it, only Value reveals it.
type Credential string

// String returns the masked form: "***" plus the last four characters for
// tokens of at least eight characters, "***" for shorter ones and "(none)"
// when unset.
func (c Credential) String() string {
	if c == "" {
		return "(none)"
	}
	if len(c) >= 8 {
		return "***" + string(c[len(c)-4:])
	}
	return "***"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (c Credential) GoString() string {
	return "Credential(" + c.String() + ")"
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// MarshalJSON implements json.Marshaler. Always returns the masked value.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// MarshalText implements encoding.TextMarshaler. Always returns the masked value.
func (c Credential) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Value returns the raw token. Use only when building a request.
func (c Credential) Value() string {
	return string(c)
}

// IsSet returns true if the credential has a non-empty value.
func (c Credential) IsSet() bool {
	return c != ""
}

// Or returns c if set, otherwise fallback.
func (c Credential) Or(fallback Credential) Credential {
	if c.IsSet() {
		return c
	}
	return fallback
}
