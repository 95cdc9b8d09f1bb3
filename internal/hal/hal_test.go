package hal

import (
	"errors"
	"testing"
)

func TestDevicesClose_ReverseOrderJoinsErrors(t *testing.T) {
	var order []string
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	d := &Devices{}
	d.OnClose(func() error { order = append(order, "a"); return errA })
	d.OnClose(func() error { order = append(order, "b"); return nil })
	d.OnClose(func() error { order = append(order, "c"); return errC })

	err := d.Close()
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Fatalf("Close() = %v, want both errors", err)
	}
	if got := len(order); got != 3 || order[0] != "c" || order[2] != "a" {
		t.Errorf("close order = %v, want [c b a]", order)
	}

	order = nil
	if err := d.Close(); err != nil || len(order) != 0 {
		t.Errorf("second Close ran closers again: %v %v", order, err)
	}
}

func TestLogDisplay(t *testing.T) {
	d := &LogDisplay{}
	if err := d.ShowNumber(1); err != nil {
		t.Fatal(err)
	}
	if err := d.ShowNumber(0); err != nil {
		t.Fatal(err)
	}
	if d.Last() != 0 {
		t.Errorf("Last() = %d, want 0", d.Last())
	}
}
