package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: Put, Get, Exists, Remove, Operate
	TTL   int64  `json:"ttl,omitempty"`   // Used for: Put
	Value []byte `json:"value,omitempty"` // Encoded bins, operations, batch, record or results (see factory functions)

	// Response only fields
	Ok   bool          `json:"ok,omitempty"`   // Used for: Exists responses
	Code store.RetCode `json:"code,omitempty"` // RetCSuccess if no error
	Err  string        `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional adapters
}

// AsError returns the error carried by a response, nil if there is none.
// The returned error is a *store.Error with the code set by the server.
func (m *Message) AsError() error {
	if m.MsgType == MsgTError || m.Err != "" || m.Code != store.RetCSuccess {
		code := m.Code
		if code == store.RetCSuccess {
			code = store.RetCInternalError
		}
		return store.NewError(code, m.Err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewResponse creates a response of type t. A non nil err sets Code and Err.
func NewResponse(t MessageType, value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: t,
		Value:   value,
		Ok:      ok,
	}
	if err != nil {
		e := store.FromError(err)
		msg.Code = e.Code
		msg.Err = e.Msg
		msg.Value = nil
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// NewPutRequest creates a new Put request, Value holds the bins encoded with record.EncodeBins
func NewPutRequest(key string, bins record.Bins, ttl int64) (*Message, error) {
	value, err := record.EncodeBins(bins)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: MsgTPut,
		Key:     key,
		TTL:     ttl,
		Value:   value,
	}, nil
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response, Value holds the record encoded with record.Encode
func NewGetResponse(rec *record.Record, err error) *Message {
	if err != nil {
		return NewResponse(MsgTGet, nil, false, err)
	}
	value, err := record.Encode(rec)
	return NewResponse(MsgTGet, value, true, err)
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest(key string) *Message {
	return &Message{
		MsgType: MsgTExists,
		Key:     key,
	}
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(key string) *Message {
	return &Message{
		MsgType: MsgTRemove,
		Key:     key,
	}
}

// NewOperateRequest creates a new Operate request, Value holds the operations encoded with record.EncodeOps
func NewOperateRequest(key string, ops []record.Operation) (*Message, error) {
	value, err := record.EncodeOps(ops)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: MsgTOperate,
		Key:     key,
		Value:   value,
	}, nil
}

// NewOperateResponse creates a new Operate response, Value holds the results encoded with record.EncodeValues
func NewOperateResponse(results []any, err error) *Message {
	if err != nil {
		return NewResponse(MsgTOperate, nil, false, err)
	}
	value, err := record.EncodeValues(results)
	return NewResponse(MsgTOperate, value, false, err)
}

// NewBatchRequest creates a new Batch request, Value holds the batch encoded with store.EncodeBatch
func NewBatchRequest(records []*store.BatchRecord) (*Message, error) {
	value, err := store.EncodeBatch(records)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: MsgTBatch,
		Value:   value,
	}, nil
}

// NewBatchResponse creates a new Batch response, Value holds the outcome encoded with store.EncodeBatchResults
func NewBatchResponse(records []*store.BatchRecord, err error) *Message {
	if err != nil {
		return NewResponse(MsgTBatch, nil, false, err)
	}
	value, err := store.EncodeBatchResults(records)
	return NewResponse(MsgTBatch, value, false, err)
}

// NewInfoRequest creates a new GetDBInfo request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTInfo,
	}
}

// NewInfoResponse creates a new GetDBInfo response, Value holds the info as json
func NewInfoResponse(info db.DatabaseInfo, err error) *Message {
	if err != nil {
		return NewResponse(MsgTInfo, nil, false, err)
	}
	value, err := json.Marshal(info)
	return NewResponse(MsgTInfo, value, false, err)
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTUnknown: "unknown",
	MsgTSuccess: "success",
	MsgTError:   "error",
	MsgTPut:     "put",
	MsgTGet:     "get",
	MsgTExists:  "exists",
	MsgTRemove:  "remove",
	MsgTOperate: "operate",
	MsgTBatch:   "batch",
	MsgTInfo:    "info",
	MsgTCustom:  "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTPut     // Merge bins into a record
	MsgTGet     // Read a whole record
	MsgTExists  // Check if a record exists
	MsgTRemove  // Delete a record
	MsgTOperate // Apply operations to a record
	MsgTBatch   // Execute a batch of records
	MsgTInfo    // Get information about the database of a shard

	// Custom operations

	MsgTCustom // Custom operation type
)
