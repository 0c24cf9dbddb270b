package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/feed"
)

func face() biometric.Observation {
	return biometric.Observation{Embedding: make(biometric.Embedding, 128), Score: 0.9}
}

func TestWaitForFace(t *testing.T) {
	tests := []struct {
		name string
		obs  []biometric.Observation
		want bool
	}{
		{"single face", []biometric.Observation{face()}, true},
		{"no face", nil, false},
		{"two faces", []biometric.Observation{face(), face()}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slot := feed.NewSlot()
			slot.Publish(tc.obs)

			if got := waitForFace(context.Background(), slot, 120*time.Millisecond); got != tc.want {
				t.Errorf("waitForFace = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWaitForFace_LatePublish(t *testing.T) {
	slot := feed.NewSlot()
	go func() {
		time.Sleep(100 * time.Millisecond)
		slot.Publish([]biometric.Observation{face()})
	}()

	if !waitForFace(context.Background(), slot, 2*time.Second) {
		t.Error("expected face to be seen after late publish")
	}
}
