package segment

import (
	"os"
	"testing"
)

func TestAdviseSequentialDoesNotPanic(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "hint")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	adviseSequential(f.Fd())
}
