package server

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/lstore"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

// nopTransport is a server transport that never receives anything.
type nopTransport struct{}

func (nopTransport) RegisterHandler(transport.ServerHandleFunc) {}
func (nopTransport) Listen(common.ServerConfig) error        { return nil }
func (nopTransport) Close() error                             { return nil }

func newTestServer(t *testing.T) (*RPCServer, serializer.IRPCSerializer) {
	t.Helper()
	s := serializer.NewBinarySerializer()
	srv := NewRPCServer(common.ServerConfig{Metrics: true}, nopTransport{}, s)
	srv.AddShard(1, lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }))
	return srv, s
}

// call sends msg to shard through HandleRequest.
func call(t *testing.T, srv *RPCServer, s serializer.IRPCSerializer, shard uint64, msg *common.Message) *common.Message {
	t.Helper()
	req, err := s.Serialize(*msg)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	var resp common.Message
	if err := s.Deserialize(srv.HandleRequest(shard, req), &resp); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	return &resp
}

func TestHandleRequest(t *testing.T) {
	srv, s := newTestServer(t)

	put, err := common.NewPutRequest("k", record.Bins{"l": []any{int64(5), int64(7), int64(6)}}, 0)
	if err != nil {
		t.Fatalf("NewPutRequest() error = %v", err)
	}
	if err := call(t, srv, s, 1, put).AsError(); err != nil {
		t.Fatalf("put error = %v", err)
	}

	exists := call(t, srv, s, 1, common.NewExistsRequest("k"))
	if err := exists.AsError(); err != nil || !exists.Ok {
		t.Errorf("exists = %v, %v, want true, nil", exists.Ok, err)
	}

	op, err := common.NewOperateRequest("k", []record.Operation{
		record.ListRemoveBy{Bin: "l", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnValue},
		record.ListSize{Bin: "l"},
	})
	if err != nil {
		t.Fatalf("NewOperateRequest() error = %v", err)
	}
	resp := call(t, srv, s, 1, op)
	if err := resp.AsError(); err != nil {
		t.Fatalf("operate error = %v", err)
	}
	results, err := record.DecodeValues(resp.Value)
	if err != nil {
		t.Fatalf("DecodeValues() error = %v", err)
	}
	if want := []any{int64(5), int64(2)}; !reflect.DeepEqual(results, want) {
		t.Errorf("operate results = %v, want %v", results, want)
	}

	get := call(t, srv, s, 1, common.NewGetRequest("k"))
	rec, err := record.Decode("k", get.Value)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := []any{int64(7), int64(6)}; !reflect.DeepEqual(rec.Bins["l"], want) {
		t.Errorf("bin l = %v, want %v", rec.Bins["l"], want)
	}

	if err := call(t, srv, s, 1, common.NewRemoveRequest("k")).AsError(); err != nil {
		t.Errorf("remove error = %v", err)
	}
}

func TestHandleRequestErrors(t *testing.T) {
	srv, s := newTestServer(t)

	testCases := []struct {
		name  string
		shard uint64
		msg   *common.Message
		want  store.RetCode
	}{
		{"unknown shard", 99, common.NewGetRequest("k"), store.RetCInvalidOperation},
		{"missing record", 1, common.NewGetRequest("missing"), store.RetCRecordNotFound},
		{"remove missing record", 1, common.NewRemoveRequest("missing"), store.RetCRecordNotFound},
		{"malformed operations", 1, &common.Message{MsgType: common.MsgTOperate, Key: "k", Value: []byte{0xff}}, store.RetCInvalidOperation},
		{"unsupported type", 1, &common.Message{MsgType: common.MsgTCustom}, store.RetCUnsupportedOperation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := call(t, srv, s, tc.shard, tc.msg).AsError()
			var e *store.Error
			if !errors.As(err, &e) {
				t.Fatalf("AsError() = %v, want *store.Error", err)
			}
			if e.Code != tc.want {
				t.Errorf("Code = %v, want %v", e.Code, tc.want)
			}
		})
	}
}

func TestHandleRequestMalformedBody(t *testing.T) {
	srv, s := newTestServer(t)

	var resp common.Message
	if err := s.Deserialize(srv.HandleRequest(1, []byte{1}), &resp); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if resp.MsgType != common.MsgTError || resp.Code != store.RetCInvalidOperation {
		t.Errorf("response = %+v, want error with InvalidOperation", resp)
	}
}

func TestRequestMetrics(t *testing.T) {
	srv, s := newTestServer(t)

	requests := metrics.GetOrCreateCounter(`dcdt_requests_total{type="exists"}`)
	before := requests.Get()
	call(t, srv, s, 1, common.NewExistsRequest("k"))
	call(t, srv, s, 1, common.NewExistsRequest("k"))
	if got := requests.Get() - before; got != 2 {
		t.Errorf("exists requests = %d, want 2", got)
	}

	failures := metrics.GetOrCreateCounter(`dcdt_request_errors_total{type="get"}`)
	before = failures.Get()
	call(t, srv, s, 1, common.NewGetRequest("missing"))
	if got := failures.Get() - before; got != 1 {
		t.Errorf("get errors = %d, want 1", got)
	}
}
