package auction

import (
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func recovered(t *testing.T, fn func()) string {
	t.Helper()
	var msg string
	func() {
		defer func() {
			if r := recover(); r != nil {
				msg, _ = r.(string)
			}
		}()
		fn()
	}()
	return msg
}

func TestCryptoRandSource_Intn(t *testing.T) {
	src := cryptoRandSource{}
	for range 100 {
		if got := src.Intn(3); got < 0 || got >= 3 {
			t.Fatalf("Intn(3) = %d, want [0, 3)", got)
		}
	}

	tests := []struct {
		name string
		src  cryptoRandSource
		n    int
		want string
	}{
		{"non-positive bound", cryptoRandSource{}, 0, "n must be positive"},
		{"failing reader", cryptoRandSource{reader: failingReader{}}, 5, "entropy exhausted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := recovered(t, func() { tt.src.Intn(tt.n) })
			if !strings.Contains(msg, tt.want) {
				t.Errorf("panic = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestMustMarshal(t *testing.T) {
	if got := string(mustMarshal(struct {
		ID string `json:"id"`
	}{ID: "pa"})); got != `{"id":"pa"}` {
		t.Errorf("mustMarshal() = %s", got)
	}

	msg := recovered(t, func() { mustMarshal(make(chan int)) })
	if !strings.Contains(msg, "encoding chan int event payload") {
		t.Errorf("panic = %q, want an encoding failure", msg)
	}
}
