package internal

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Command with key and payload",
			command:  Command{Type: CommandTPut, Key: "testkey", TTL: 100, Payload: []byte("payload")},
			expected: 1 + 8 + 4 + 7 + 7, // Type + TTL + KeyLen + Key + Payload
		},
		{
			name:     "Command without key",
			command:  Command{Type: CommandTBatch, Payload: []byte("payload")},
			expected: 1 + 8 + 4 + 0 + 7,
		},
		{
			name:     "Command without payload",
			command:  Command{Type: CommandTRemove, Key: "testkey"},
			expected: 1 + 8 + 4 + 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if size := tt.command.SizeBytes(); size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{"put", Command{Type: CommandTPut, Key: "testkey", TTL: 100, Payload: []byte{1, 2, 3}}},
		{"negative ttl", Command{Type: CommandTOperate, Key: "k", TTL: store.TTLDontUpdate, Payload: []byte{4}}},
		{"remove", Command{Type: CommandTRemove, Key: "testkey"}},
		{"empty key", Command{Type: CommandTBatch, Payload: []byte{5, 6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()
			if len(data) != tt.command.SizeBytes() {
				t.Errorf("len(Serialize()) = %d, want %d", len(data), tt.command.SizeBytes())
			}

			var got Command
			if err := got.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if got.Type != tt.command.Type || got.Key != tt.command.Key || got.TTL != tt.command.TTL {
				t.Errorf("Deserialize() = %+v, want %+v", got, tt.command)
			}
			if !bytes.Equal(got.Payload, tt.command.Payload) {
				t.Errorf("Deserialize() payload = %v, want %v", got.Payload, tt.command.Payload)
			}
		})
	}
}

// TestDeserializeErrors tests that truncated input is rejected
func TestDeserializeErrors(t *testing.T) {
	full := (&Command{Type: CommandTPut, Key: "testkey"}).Serialize()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", full[:5]},
		{"short key", full[:len(full)-2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Command
			if err := c.Deserialize(tt.data); err == nil {
				t.Errorf("Deserialize(%v) succeeded, want error", tt.data)
			}
		})
	}
}

func TestPutCommandBins(t *testing.T) {
	bins := record.Bins{"a": int64(1), "l": []any{"x"}, "gone": nil}
	cmd, err := NewPutCommand("k", bins, 10)
	if err != nil {
		t.Fatalf("NewPutCommand() error = %v", err)
	}

	var decoded Command
	if err := decoded.Deserialize(cmd.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	got, err := decoded.Bins()
	if err != nil {
		t.Fatalf("Bins() error = %v", err)
	}
	if !reflect.DeepEqual(got, bins) {
		t.Errorf("Bins() = %v, want %v", got, bins)
	}
}

func TestOperateAndBatchCommands(t *testing.T) {
	ops := []record.Operation{
		record.ListRemoveBy{Bin: "l", Selector: cdt.RankRange(0, 3), Return: cdt.ReturnValue},
	}
	cmd, err := NewOperateCommand("k", ops)
	if err != nil {
		t.Fatalf("NewOperateCommand() error = %v", err)
	}
	decodedOps, err := record.DecodeOps(cmd.Payload)
	if err != nil {
		t.Fatalf("DecodeOps() error = %v", err)
	}
	if !reflect.DeepEqual(decodedOps, ops) {
		t.Errorf("ops = %v, want %v", decodedOps, ops)
	}

	batch := []*store.BatchRecord{store.NewBatchRemove("a"), store.NewBatchWrite("b", ops...)}
	cmd, err = NewBatchCommand(batch)
	if err != nil {
		t.Fatalf("NewBatchCommand() error = %v", err)
	}
	decoded, err := store.DecodeBatch(cmd.Payload)
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	if len(decoded) != 2 || decoded[0].Kind != store.BatchRemove || decoded[1].Key != "b" {
		t.Errorf("DecodeBatch() = %v, want remove(a), write(b)", decoded)
	}
}
