package serializer

import "github.com/ValentinKolb/dCDT/rpc/common"

// IRPCSerializer converts Messages to bytes and back.
// Implementations are stateless and safe for concurrent use.
type IRPCSerializer interface {
	// Serialize returns the encoding of msg.
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. Fields absent from b are reset.
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer registered under name (binary, json or gob).
func ByName(name string) (IRPCSerializer, bool) {
	switch name {
	case "binary":
		return NewBinarySerializer(), true
	case "json":
		return NewJSONSerializer(), true
	case "gob":
		return NewGOBSerializer(), true
	}
	return nil, false
}
