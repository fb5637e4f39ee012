package checkout

import (
	"regexp"
	"testing"
	"time"
)

func TestMerchantUIDGenerator_Format(t *testing.T) {
	fixed := time.Date(2024, 9, 17, 12, 0, 0, 0, time.UTC)
	gen := NewMerchantUIDGeneratorWithClock(func() time.Time { return fixed })

	uid := gen.Next()

	pattern := regexp.MustCompile(`^mid_(\d+)_[0-9a-f]{8}$`)
	match := pattern.FindStringSubmatch(uid)
	if match == nil {
		t.Fatalf("uid does not match expected format: %s", uid)
	}
	if want := "1726574400000"; match[1] != want {
		t.Fatalf("expected millis %s, got %s", want, match[1])
	}
}

func TestMerchantUIDGenerator_UniqueWithinSameMilli(t *testing.T) {
	fixed := time.Date(2024, 9, 17, 12, 0, 0, 0, time.UTC)
	gen := NewMerchantUIDGeneratorWithClock(func() time.Time { return fixed })

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		uid := gen.Next()
		if _, ok := seen[uid]; ok {
			t.Fatalf("duplicate uid generated: %s", uid)
		}
		seen[uid] = struct{}{}
	}
}
