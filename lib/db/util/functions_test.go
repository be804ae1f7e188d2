package util

import "testing"

func TestHashString(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		seedA uint64
		seedB uint64
		same  bool
	}{
		{"same input", "user:1", "user:1", 7, 7, true},
		{"different key", "user:1", "user:2", 7, 7, false},
		{"different seed", "user:1", "user:1", 7, 8, false},
		{"empty key", "", "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashString(tt.a, tt.seedA) == HashString(tt.b, tt.seedB)
			if got != tt.same {
				t.Errorf("HashString(%q, %d) == HashString(%q, %d) = %v, want %v", tt.a, tt.seedA, tt.b, tt.seedB, got, tt.same)
			}
		})
	}
}

func TestShardIndex(t *testing.T) {
	seed := GenerateSeed()
	counts := make([]int, 8)
	for i := 0; i < 8000; i++ {
		idx := ShardIndex(HashString(string(rune(i))+"key", seed), len(counts))
		if idx < 0 || idx >= len(counts) {
			t.Fatalf("ShardIndex() = %d, want [0, %d)", idx, len(counts))
		}
		counts[idx]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("shard %d received no keys", i)
		}
	}
}
