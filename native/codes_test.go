package native

import "testing"

func TestCode_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want string
	}{
		{ErrorHandle, "invalid handle"},
		{ErrorInit, "not initialized"},
		{ErrorUnknown, "unknown"},
		{Code(999), "code 999"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", int32(tt.code), got, tt.want)
		}
	}
}

func TestSyncType_Modifiers(t *testing.T) {
	t.Parallel()

	typ := SyncEnd | SyncOnetime | SyncMixtime
	if typ.Condition() != SyncEnd {
		t.Errorf("Condition() = %#x, want %#x", uint32(typ.Condition()), uint32(SyncEnd))
	}
	if !typ.OneTime() {
		t.Error("OneTime() = false, want true")
	}
	if SyncPos.OneTime() {
		t.Error("SyncPos.OneTime() = true, want false")
	}
}

func TestActiveState_String(t *testing.T) {
	t.Parallel()

	if got := ActivePlaying.String(); got != "playing" {
		t.Errorf("ActivePlaying.String() = %q", got)
	}
	if got := ActiveState(77).String(); got != "unknown" {
		t.Errorf("ActiveState(77).String() = %q", got)
	}
}
