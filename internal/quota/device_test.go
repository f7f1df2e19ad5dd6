package quota

import (
	"testing"

	"billserver/internal/domain"
)

func TestClassifyMemory(t *testing.T) {
	tests := []struct {
		name     string
		memoryMB int
		want     domain.DeviceTier
	}{
		{name: "unreported", memoryMB: 0, want: domain.DeviceTierMidRange},
		{name: "negative", memoryMB: -1, want: domain.DeviceTierMidRange},
		{name: "2gb", memoryMB: 2048, want: domain.DeviceTierLowEnd},
		{name: "4gb", memoryMB: 4096, want: domain.DeviceTierMidRange},
		{name: "8gb", memoryMB: 8192, want: domain.DeviceTierHighEnd},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyMemory(tc.memoryMB); got != tc.want {
				t.Fatalf("ClassifyMemory(%d) = %s, want %s", tc.memoryMB, got, tc.want)
			}
		})
	}
}
