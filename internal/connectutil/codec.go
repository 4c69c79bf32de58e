package connectutil

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// jsonCodec marshals plain Go structs for services that have no generated
// protobuf messages. It registers under the "json" name, replacing connect's
// protojson codec for the handlers and clients it is passed to.
type jsonCodec struct{}

// JSONCodec returns the codec for plain-struct Connect services.
func JSONCodec() connect.Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}
