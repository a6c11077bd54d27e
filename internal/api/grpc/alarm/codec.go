package alarm

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype the API messages travel under.
const CodecName = "json"

//nolint:gochecknoinits // Codecs are looked up by content subtype from a process-wide registry.
func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals API messages as JSON.
type Codec struct{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}

	return data, nil
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}

	return nil
}

// Name implements encoding.Codec.
func (Codec) Name() string {
	return CodecName
}
