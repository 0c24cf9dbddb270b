package camera

import (
	"bufio"
	"bytes"
	"testing"
)

func jpegFrame(payload ...byte) []byte {
	frame := append([]byte{0xFF, 0xD8}, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestSplitJpeg(t *testing.T) {
	a := jpegFrame(1, 2, 3)
	b := jpegFrame(4, 5)

	tests := []struct {
		name  string
		input []byte
		want  [][]byte
	}{
		{name: "empty", input: nil, want: nil},
		{name: "single frame", input: a, want: [][]byte{a}},
		{name: "two frames", input: append(append([]byte{}, a...), b...), want: [][]byte{a, b}},
		{name: "leading garbage", input: append([]byte{0x00, 0x11, 0x22}, a...), want: [][]byte{a}},
		{name: "truncated trailing frame", input: append(append([]byte{}, a...), 0xFF, 0xD8, 9, 9), want: [][]byte{a}},
		{name: "no markers", input: []byte{1, 2, 3, 4}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(bytes.NewReader(tt.input))
			scanner.Split(SplitJpeg)

			var got [][]byte
			for scanner.Scan() {
				got = append(got, bytes.Clone(scanner.Bytes()))
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !bytes.Equal(got[i], tt.want[i]) {
					t.Errorf("frame %d = %x, want %x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitJpeg_SOIOverlapsEOI(t *testing.T) {
	// FF D8 D9: the EOI search starts after SOI, so this is not a frame.
	adv, tok, err := SplitJpeg([]byte{0xFF, 0xD8, 0xD9}, false)
	if err != nil || tok != nil || adv != 0 {
		t.Errorf("got (%d, %x, %v), want no token", adv, tok, err)
	}
}
