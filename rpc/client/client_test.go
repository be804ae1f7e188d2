package client

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/db"
	"github.com/ValentinKolb/dCDT/lib/db/engines/maple"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/lib/store/lstore"
	storetesting "github.com/ValentinKolb/dCDT/lib/store/testing"
	"github.com/ValentinKolb/dCDT/rpc/common"
	"github.com/ValentinKolb/dCDT/rpc/serializer"
	"github.com/ValentinKolb/dCDT/rpc/server"
	"github.com/ValentinKolb/dCDT/rpc/transport"
)

// --------------------------------------------------------------------------
// In-process transport
// --------------------------------------------------------------------------

// inprocTransport hands requests directly to a server handler.
type inprocTransport struct {
	handler transport.ServerHandleFunc
	// failWith is returned by Send instead of calling the handler when set
	failWith atomic.Pointer[error]
	sent     atomic.Int64
}

// serverTransport adapts an inprocTransport to the server side.
type serverTransport struct{ client *inprocTransport }

func (s serverTransport) RegisterHandler(h transport.ServerHandleFunc) { s.client.handler = h }
func (serverTransport) Listen(common.ServerConfig) error               { return nil }
func (serverTransport) Close() error                                   { return nil }

func (t *inprocTransport) Connect(common.ClientConfig) error { return nil }
func (t *inprocTransport) Close() error                      { return nil }

func (t *inprocTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	t.sent.Add(1)
	if err := t.failWith.Load(); err != nil {
		return nil, *err
	}
	return t.handler(shardId, req), nil
}

func (t *inprocTransport) fail(err error) {
	if err == nil {
		t.failWith.Store(nil)
		return
	}
	t.failWith.Store(&err)
}

// newTestStore returns a client for shard 1 of an in-process server backed by lstore.
func newTestStore(t testing.TB, config common.ClientConfig, s serializer.IRPCSerializer) (*RPCStore, *inprocTransport) {
	t.Helper()
	tr := &inprocTransport{}
	srv := server.NewRPCServer(common.ServerConfig{}, serverTransport{tr}, s)
	srv.AddShard(1, lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }))

	st, err := NewRPCStore(1, config, tr, s)
	if err != nil {
		t.Fatalf("NewRPCStore() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, tr
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRPCStore(t *testing.T) {
	storetesting.RunStoreTests(t, "RPCStore", func() store.IStore {
		st, _ := newTestStore(t, common.ClientConfig{}, serializer.NewBinarySerializer())
		return st
	})
}

func TestRPCStoreSerializers(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob"} {
		t.Run(name, func(t *testing.T) {
			s, _ := serializer.ByName(name)
			st, _ := newTestStore(t, common.ClientConfig{}, s)

			if err := st.Put("k", record.Bins{"m": cdt.Map{{Key: "a", Value: int64(3)}, {Key: "b", Value: int64(1)}}}, 0); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			results, err := st.Operate("k", []record.Operation{
				record.MapGetBy{Bin: "m", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnKey},
			})
			if err != nil {
				t.Fatalf("Operate() error = %v", err)
			}
			if want := []any{"b"}; !reflect.DeepEqual(results, want) {
				t.Errorf("Operate() = %v, want %v", results, want)
			}

			info, err := st.GetDBInfo()
			if err != nil {
				t.Fatalf("GetDBInfo() error = %v", err)
			}
			if info.DbType == "" {
				t.Errorf("GetDBInfo().DbType is empty")
			}
		})
	}
}

func TestTransportErrors(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want store.RetCode
	}{
		{"connection failure", errors.New("connection refused"), store.RetCClientError},
		{"timeout", fmt.Errorf("send: %w", transport.ErrTimeout), store.RetCTimeout},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st, tr := newTestStore(t, common.ClientConfig{}, serializer.NewBinarySerializer())
			tr.fail(tc.err)
			_, err := st.Exists("k")
			if got := store.CodeOf(err); got != tc.want {
				t.Errorf("Exists() code = %v, want %v", got, tc.want)
			}
			if !store.IsClientError(err) {
				t.Errorf("IsClientError(%v) = false, want true", err)
			}
		})
	}
}

func TestErrorRateLimit(t *testing.T) {
	// the tend loop never fires during the test, tend is called directly
	st, tr := newTestStore(t, common.ClientConfig{MaxErrorRate: 2, TendIntervalMs: int(time.Hour / time.Millisecond)},
		serializer.NewBinarySerializer())

	tr.fail(errors.New("connection reset"))
	for i := 0; i < 3; i++ {
		if _, err := st.Exists("k"); store.CodeOf(err) != store.RetCClientError {
			t.Fatalf("Exists() #%d code = %v, want %v", i, store.CodeOf(err), store.RetCClientError)
		}
	}

	// the transport recovered but the limit is reached
	tr.fail(nil)
	sent := tr.sent.Load()
	if _, err := st.Exists("k"); store.CodeOf(err) != store.RetCMaxErrorRate {
		t.Errorf("Exists() code = %v, want %v", store.CodeOf(err), store.RetCMaxErrorRate)
	}
	if tr.sent.Load() != sent {
		t.Errorf("request was sent although the error rate was exceeded")
	}

	st.limiter.tend()
	if _, err := st.Exists("k"); err != nil {
		t.Errorf("Exists() after tend error = %v", err)
	}
}

func TestErrorRateIgnoresServerErrors(t *testing.T) {
	st, _ := newTestStore(t, common.ClientConfig{MaxErrorRate: 1}, serializer.NewBinarySerializer())

	for i := 0; i < 5; i++ {
		if _, err := st.Get("missing"); store.CodeOf(err) != store.RetCRecordNotFound {
			t.Fatalf("Get() code = %v, want %v", store.CodeOf(err), store.RetCRecordNotFound)
		}
	}
}

func TestErrorRateTendLoop(t *testing.T) {
	l := newErrorRateLimiter(1, 10*time.Millisecond)
	defer l.stop()

	l.failure()
	l.failure()
	if l.admit() {
		t.Fatalf("admit() = true after 2 errors with max 1")
	}
	deadline := time.Now().Add(2 * time.Second)
	for !l.admit() {
		if time.Now().After(deadline) {
			t.Fatalf("tend loop did not reset the error count")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestErrorRateDisabled(t *testing.T) {
	l := newErrorRateLimiter(0, time.Second)
	if l != nil {
		t.Fatalf("newErrorRateLimiter(0) = %v, want nil", l)
	}
	l.failure()
	if !l.admit() {
		t.Errorf("admit() = false for disabled limiter")
	}
	l.stop()
}

func TestBatchInDoubt(t *testing.T) {
	st, tr := newTestStore(t, common.ClientConfig{}, serializer.NewBinarySerializer())
	tr.fail(errors.New("broken pipe"))

	records := []*store.BatchRecord{
		store.NewBatchRead("a"),
		store.NewBatchWrite("b", record.ListAppend{Bin: "l", Values: []any{int64(1)}}),
		store.NewBatchRemove("c"),
	}
	if err := st.BatchOperate(records); store.CodeOf(err) != store.RetCClientError {
		t.Fatalf("BatchOperate() code = %v, want %v", store.CodeOf(err), store.RetCClientError)
	}
	for _, b := range records {
		if want := b.Kind != store.BatchRead; b.InDoubt != want {
			t.Errorf("%s InDoubt = %v, want %v", b, b.InDoubt, want)
		}
	}
}

func BenchmarkRPCStore(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "RPCStore", func() store.IStore {
		st, _ := newTestStore(b, common.ClientConfig{}, serializer.NewBinarySerializer())
		return st
	})
}
