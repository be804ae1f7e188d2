package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// RunStoreBenchmarks runs the benchmarks for a store.IStore implementation.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, factory())
	})

	b.Run("ListAppend", func(b *testing.B) {
		benchmarkListAppend(b, factory())
	})

	b.Run("ListGetByRank", func(b *testing.B) {
		benchmarkListGetByRank(b, factory())
	})

	b.Run("Batch", func(b *testing.B) {
		benchmarkBatch(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkPut(b *testing.B, s store.IStore) {
	bins := record.Bins{"name": "bench", "n": 1}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := s.Put(fmt.Sprintf("key-%d", counter), bins, store.TTLDefault); err != nil {
				b.Error(err)
			}
			counter++
		}
	})
}

// benchmarkListAppend appends to a few hot lists
func benchmarkListAppend(b *testing.B, s store.IStore) {
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			op := record.ListAppend{Bin: "l", Values: []any{r.Int63()}}
			if _, err := s.Operate(fmt.Sprintf("list-%d", r.Intn(16)), []record.Operation{op}); err != nil {
				b.Error(err)
			}
		}
	})
}

func benchmarkListGetByRank(b *testing.B, s store.IStore) {
	values := make([]any, 1000)
	for i := range values {
		values[i] = rand.Int63()
	}
	if err := s.Put("ranked", record.Bins{"l": values}, store.TTLDefault); err != nil {
		b.Fatal(err)
	}
	ops := []record.Operation{record.ListGetBy{Bin: "l", Selector: cdt.RankRange(-10, 10), Return: cdt.ReturnValue}}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Operate("ranked", ops); err != nil {
				b.Error(err)
			}
		}
	})
}

func benchmarkBatch(b *testing.B, s store.IStore) {
	for i := 0; i < 100; i++ {
		if err := s.Put(fmt.Sprintf("key-%d", i), record.Bins{"l": []any{i, i + 1, i + 2}}, store.TTLDefault); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		records := make([]*store.BatchRecord, 0, 20)
		for j := 0; j < 10; j++ {
			key := fmt.Sprintf("key-%d", (i+j)%100)
			records = append(records,
				store.NewBatchRead(key, record.ListSize{Bin: "l"}),
				store.NewBatchWrite(key, record.ListAppend{Bin: "l", Values: []any{j}}),
			)
		}
		if err := s.BatchOperate(records); err != nil {
			b.Fatal(err)
		}
	}
}
