package volume

import "testing"

func TestUnavailable(t *testing.T) {
	var m Manager = Unavailable{}
	if m.Available() {
		t.Error("Unavailable reports available")
	}
	if _, err := m.Get(); err == nil {
		t.Error("Get on Unavailable succeeded")
	}
	if err := m.Set(50); err == nil {
		t.Error("Set on Unavailable succeeded")
	}
}

func TestMixerCmdGet(t *testing.T) {
	m := NewMixerCmd("echo 42", "true")
	if !m.Available() {
		t.Error("MixerCmd reports unavailable")
	}
	level, err := m.Get()
	if err != nil || level != 42 {
		t.Errorf("Get = %d, %v, want 42", level, err)
	}
}

func TestMixerCmdGetClampsOutOfRange(t *testing.T) {
	m := NewMixerCmd("echo 150", "true")
	level, err := m.Get()
	if err != nil || level != 100 {
		t.Errorf("Get = %d, %v, want 100", level, err)
	}
}

func TestMixerCmdGetBadOutput(t *testing.T) {
	m := NewMixerCmd("echo notanumber", "true")
	if _, err := m.Get(); err == nil {
		t.Error("Get with non-numeric output succeeded")
	}
}

func TestMixerCmdSet(t *testing.T) {
	m := NewMixerCmd("echo 0", "true")
	if err := m.Set(30); err != nil {
		t.Errorf("Set failed: %v", err)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {55, 55}, {100, 100}, {140, 100},
	}
	for _, tt := range tests {
		if got := clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
