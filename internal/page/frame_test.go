package page

import "testing"

func TestNewFrameIsZeroedAndFixedSize(t *testing.T) {
	f := NewFrame(7)
	if f.ID != 7 {
		t.Fatalf("ID = %d, want 7", f.ID)
	}
	if len(f.Data) != Size {
		t.Fatalf("len(Data) = %d, want %d", len(f.Data), Size)
	}
	for i, b := range f.Data {
		if b != 0 {
			t.Fatalf("Data[%d] = %d, want 0", i, b)
		}
	}
}

func TestFrameLatchIsIndependentOfPinCount(t *testing.T) {
	f := NewFrame(1)
	f.PinCount = 3

	f.Lock()
	f.Data[0] = 1
	f.Unlock()

	f.RLock()
	if f.Data[0] != 1 {
		t.Fatal("write under Lock should be visible under RLock")
	}
	f.RUnlock()
}
