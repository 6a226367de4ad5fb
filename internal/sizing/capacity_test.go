package sizing

import (
	"errors"
	"testing"
)

func TestEffectiveConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		baseS    float64
		targetMs float64
		want     int
	}{
		{"four requests fit", 0.5, 2000, 4},
		{"exact equality serves one", 0.5, 500, 1},
		{"just under two multiples", 0.5, 999, 1},
		{"two whole multiples", 0.5, 1000, 2},
		{"division artifact counts fully", 0.1, 300, 3}, // 0.3/0.1 = 2.999... in floats
		{"equality at one second", 1.0, 1000, 1},
		{"generous budget", 0.25, 10000, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EffectiveConcurrency(tt.baseS, tt.targetMs)
			if err != nil {
				t.Fatalf("EffectiveConcurrency(%v, %v) error: %v", tt.baseS, tt.targetMs, err)
			}
			if got != tt.want {
				t.Errorf("EffectiveConcurrency(%v, %v) = %d, want %d", tt.baseS, tt.targetMs, got, tt.want)
			}
		})
	}
}

func TestEffectiveConcurrencyInvalidTarget(t *testing.T) {
	// 400ms budget for a 0.5s model is physically infeasible.
	_, err := EffectiveConcurrency(0.5, 400)
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestEffectiveConcurrencyInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		baseS    float64
		targetMs float64
	}{
		{"zero base latency", 0, 1000},
		{"negative base latency", -0.5, 1000},
		{"zero target", 0.5, 0},
		{"negative target", 0.5, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EffectiveConcurrency(tt.baseS, tt.targetMs)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("EffectiveConcurrency(%v, %v) error = %v, want ErrInvalidInput", tt.baseS, tt.targetMs, err)
			}
		})
	}
}

func TestRequiredDeviceCount(t *testing.T) {
	tests := []struct {
		users int
		rpd   int
		want  int
	}{
		{10, 4, 3}, // ceil(10/4)
		{10, 5, 2},
		{10, 10, 1},
		{1, 100, 1},
		{11, 5, 3},
		{1, 1, 1},
	}
	for _, tt := range tests {
		if got := RequiredDeviceCount(tt.users, tt.rpd); got != tt.want {
			t.Errorf("RequiredDeviceCount(%d, %d) = %d, want %d", tt.users, tt.rpd, got, tt.want)
		}
	}
}

func TestRequiredDeviceCountMonotonicInUsers(t *testing.T) {
	prev := 0
	for users := 1; users <= 50; users++ {
		got := RequiredDeviceCount(users, 4)
		if got < 1 {
			t.Fatalf("RequiredDeviceCount(%d, 4) = %d, want >= 1", users, got)
		}
		if got < prev {
			t.Fatalf("RequiredDeviceCount(%d, 4) = %d, decreased from %d", users, got, prev)
		}
		prev = got
	}
}
