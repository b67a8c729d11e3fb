// Package codec turns raw device payload bytes into named numeric
// readings. The gateway handler owns hex unwrapping; decoders only see
// binary.
package codec

import "errors"

// ErrMalformedPayload indicates bytes that do not parse as the
// decoder's format. The gateway treats this as an ignorable message,
// not a server error.
var ErrMalformedPayload = errors.New("malformed sensor payload")

// Decoder decodes one binary payload into a mapping of short reading
// keys (eg. "temperature") to numeric values.
type Decoder interface {
	Decode(payload []byte) (map[string]float64, error)
}
