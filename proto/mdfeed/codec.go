package mdfeed

import "encoding/json"

// jsonCodec implements grpc's encoding.Codec so Quote/SubscribeRequest can
// travel over a real grpc.ClientConn/grpc.Server without generated
// protobuf marshaling. Installed explicitly via grpc.ForceCodec /
// grpc.ForceServerCodec at dial/listen time rather than registered
// globally, so it never shadows any other service's default "proto"
// codec in the same process.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "mdfeed-json" }

// Codec returns the codec both the vendor client and the mock/replay
// server install.
func Codec() jsonCodec { return jsonCodec{} }
