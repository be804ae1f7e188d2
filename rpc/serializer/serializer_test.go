package serializer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
)

var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages returns messages built by the request/response factories.
func testMessages(t testing.TB) []common.Message {
	put, err := common.NewPutRequest("user:1", record.Bins{"list": []any{int64(1), "a"}, "n": int64(7)}, 30)
	if err != nil {
		t.Fatalf("NewPutRequest() error = %v", err)
	}
	operate, err := common.NewOperateRequest("user:1", []record.Operation{
		record.ListRemoveBy{Bin: "list", Selector: cdt.ByRankRange{Rank: 0, Count: 2}, Return: cdt.ReturnValue},
	})
	if err != nil {
		t.Fatalf("NewOperateRequest() error = %v", err)
	}
	getResp := common.NewGetResponse(&record.Record{Key: "user:1", Bins: record.Bins{"n": int64(1)}, Generation: 3}, nil)

	return []common.Message{
		{MsgType: common.MsgTSuccess},
		*put,
		*operate,
		*getResp,
		*common.NewOperateResponse(nil, store.NewError(store.RetCRankOutOfRange, "rank 9 out of range")),
		{MsgType: common.MsgTPut, Key: "k", TTL: -1, Value: []byte{1}},
		*common.NewErrorResponse(store.RetCInvalidOperation, "bad request"),
		{
			MsgType: common.MsgTCustom,
			Key:     "all-fields",
			TTL:     120,
			Value:   []byte("value"),
			Ok:      true,
			Code:    store.RetCTimeout,
			Err:     "timeout",
			Meta:    []byte("meta"),
		},
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages(t)

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			for i, msg := range messages {
				data, err := s.Serialize(msg)
				if err != nil {
					t.Errorf("Serialize(%d) error = %v", i, err)
					continue
				}
				var got common.Message
				if err := s.Deserialize(data, &got); err != nil {
					t.Errorf("Deserialize(%d) error = %v", i, err)
					continue
				}
				if !reflect.DeepEqual(msg, got) {
					t.Errorf("message %d round trip:\n got = %+v\nwant = %+v", i, got, msg)
				}
			}
		})
	}
}

func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				data, err := s.Serialize(common.Message{MsgType: msgType})
				if err != nil {
					t.Errorf("Serialize(%s) error = %v", msgType, err)
					continue
				}
				var got common.Message
				if err := s.Deserialize(data, &got); err != nil {
					t.Errorf("Deserialize(%s) error = %v", msgType, err)
					continue
				}
				if got.MsgType != msgType {
					t.Errorf("MsgType = %s, want %s", got.MsgType, msgType)
				}
			}
		})
	}
}

// TestErrorSurvivesTransport checks that the typed error of a response is
// rebuilt after serialization.
func TestErrorSurvivesTransport(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			resp := common.NewOperateResponse(nil, store.NewError(store.RetCBinNotFound, "bin list not found"))
			data, err := s.Serialize(*resp)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			var got common.Message
			if err := s.Deserialize(data, &got); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			var e *store.Error
			if !errors.As(got.AsError(), &e) {
				t.Fatalf("AsError() = %v, want *store.Error", got.AsError())
			}
			if e.Code != store.RetCBinNotFound {
				t.Errorf("Code = %v, want %v", e.Code, store.RetCBinNotFound)
			}
		})
	}
}

func TestBinarySerializerEdgeCases(t *testing.T) {
	s := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{name: "empty message", msg: common.Message{}},
		{name: "empty non nil value", msg: common.Message{MsgType: common.MsgTPut, Key: "k", Value: []byte{}}},
		{name: "empty non nil meta", msg: common.Message{MsgType: common.MsgTCustom, Meta: []byte{}}},
		{name: "ok without value", msg: common.Message{MsgType: common.MsgTExists, Ok: true}},
		{name: "negative ttl", msg: common.Message{MsgType: common.MsgTPut, Key: "k", TTL: -2}},
		{name: "code without message", msg: common.Message{MsgType: common.MsgTGet, Code: store.RetCRecordNotFound}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := s.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if len(data) != size(tc.msg) {
				t.Errorf("len(data) = %d, want %d", len(data), size(tc.msg))
			}
			// prefill to check that absent fields are reset
			got := common.Message{Key: "stale", Value: []byte("stale"), Ok: true, Code: store.RetCTimeout}
			if err := s.Deserialize(data, &got); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if !reflect.DeepEqual(tc.msg, got) {
				t.Errorf("round trip:\n got = %+v\nwant = %+v", got, tc.msg)
			}
		})
	}
}

func TestInvalidBinaryData(t *testing.T) {
	s := NewBinarySerializer()

	testCases := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty data", []byte{}, true},
		{"header too short", []byte{1}, true},
		{"header only", []byte{1, 0}, false},
		{"key length exceeds data", []byte{1, hasKey, 0, 0, 0, 5, 'a', 'b', 'c'}, true},
		{"value length exceeds data", []byte{1, hasValue, 0, 0, 0, 10}, true},
		{"truncated ttl", []byte{1, hasTTL, 0, 0, 0}, true},
		{"truncated code", []byte{2, hasCode, 0}, true},
		{"ok flag only", []byte{1, hasOk}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := s.Deserialize(tc.data, &msg)
			if (err != nil) != tc.wantErr {
				t.Errorf("Deserialize() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob"} {
		if _, ok := ByName(name); !ok {
			t.Errorf("ByName(%q) not found", name)
		}
	}
	if _, ok := ByName("xml"); ok {
		t.Errorf("ByName(%q) found, want not found", "xml")
	}
}
