package network

import "encoding/json"

// JSONCodec is a google.golang.org/grpc/encoding.Codec that marshals RPC
// messages as JSON instead of protobuf. The upgrader channel's message types
// are plain Go structs rather than generated protobuf bindings (this
// workspace never had a .proto to compile), so its gRPC servers and clients
// install this codec with grpc.ForceServerCodec / grpc.ForceCodec instead of
// relying on the default "proto" codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}
