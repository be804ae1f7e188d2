// Package serializer converts common.Message values to bytes and back.
//
// Three implementations satisfy IRPCSerializer:
//
//   - binary: a flag based format that writes only the fields present in the
//     message. Smallest and fastest, used by default.
//   - json: readable output, handy for debugging and the http transport.
//   - gob: encoding/gob, kept for comparison in the benchmarks.
//
// All serializers are stateless and safe for concurrent use. Payloads (bins,
// operations, batch records and results) are already encoded by the record
// and store packages, so a serializer only frames the Message fields.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*msg)
//	...
//	var resp common.Message
//	err = s.Deserialize(data, &resp)
package serializer
