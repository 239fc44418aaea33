package workflow

import (
	"fmt"
	"math"

	"github.com/oneclickfedora/installer/pkg/diskops"
)

// DefaultCopyFailureThreshold is robocopy's first failure bit. Exit codes
// 1 (files copied), 2 (extra files at the destination) and 4 (mismatched
// entries) and their combinations stay below it; 8 (some copies failed)
// and 16 (fatal error) do not.
const DefaultCopyFailureThreshold = 8

// CopyPolicy decides whether a copy utility exit code is a success.
type CopyPolicy struct {
	FailureThreshold int
}

// Succeeded reports whether code is below the failure threshold.
// Negative codes (the utility was killed) always fail.
func (p CopyPolicy) Succeeded(code int) bool {
	return code >= 0 && code < p.threshold()
}

func (p CopyPolicy) threshold() int {
	if p.FailureThreshold <= 0 {
		return DefaultCopyFailureThreshold
	}
	return p.FailureThreshold
}

// ShrinkTarget returns the new boot partition size, in bytes, that frees
// sizeGB GiB, or an error when the host's minimum would be violated.
func ShrinkTarget(b diskops.ShrinkBounds, sizeGB uint64) (uint64, error) {
	if sizeGB > math.MaxUint64/diskops.GiB {
		return 0, fmt.Errorf("requested size %d GB is out of range", sizeGB)
	}
	shrink := sizeGB * diskops.GiB
	if shrink >= b.Current {
		return 0, fmt.Errorf("requested %d GB but the Windows partition is only %d bytes", sizeGB, b.Current)
	}
	candidate := b.Current - shrink
	if candidate < b.Minimum {
		return 0, fmt.Errorf("new size %d bytes is below the minimum supported size %d bytes (at most %d GB can be freed)",
			candidate, b.Minimum, b.Headroom()/diskops.GiB)
	}
	return candidate, nil
}
