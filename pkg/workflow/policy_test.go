package workflow

import (
	"math"
	"testing"

	"github.com/oneclickfedora/installer/pkg/diskops"
)

func TestShrinkTarget(t *testing.T) {
	tests := []struct {
		name    string
		current uint64
		minimum uint64
		sizeGB  uint64
		want    uint64
		wantErr bool
	}{
		{"fits", 100, 80, 15, 85, false},
		{"exactly minimum", 100, 80, 20, 80, false},
		{"below minimum", 100, 80, 25, 0, true},
		{"whole partition", 100, 0, 100, 0, true},
		{"larger than partition", 100, 0, 150, 0, true},
		{"end to end bounds", 500, 450, 20, 480, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := diskops.ShrinkBounds{Current: tt.current * diskops.GiB, Minimum: tt.minimum * diskops.GiB}
			got, err := ShrinkTarget(b, tt.sizeGB)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got new size %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want*diskops.GiB {
				t.Errorf("got %d bytes, want %d GiB", got, tt.want)
			}
		})
	}
}

func TestShrinkTarget_Overflow(t *testing.T) {
	b := diskops.ShrinkBounds{Current: math.MaxUint64, Minimum: 0}
	if _, err := ShrinkTarget(b, math.MaxUint64/diskops.GiB+1); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestCopyPolicy(t *testing.T) {
	tests := []struct {
		threshold int
		code      int
		want      bool
	}{
		{8, 0, true},
		{8, 1, true},
		{8, 7, true},
		{8, 8, false},
		{8, 16, false},
		{8, -1, false},
		{0, 7, true},
		{0, 8, false},
		{1, 0, true},
		{1, 1, false},
		{16, 8, true},
	}

	for _, tt := range tests {
		p := CopyPolicy{FailureThreshold: tt.threshold}
		if got := p.Succeeded(tt.code); got != tt.want {
			t.Errorf("threshold %d, code %d: got %v, want %v", tt.threshold, tt.code, got, tt.want)
		}
	}
}

func TestNext(t *testing.T) {
	completed := Stage("")
	for _, want := range Order {
		got, ok := Next(completed)
		if !ok || got != want {
			t.Fatalf("Next(%q) = %q, %v; want %q", completed, got, ok, want)
		}
		completed = got
	}
	if _, ok := Next(StageDone); ok {
		t.Error("nothing follows done")
	}
	if _, ok := Next(StageFailed); ok {
		t.Error("nothing follows failed")
	}
}
