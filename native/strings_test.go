package native

import (
	"testing"
	"unsafe"
)

func TestEncodeString_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		wide bool
	}{
		{"narrow ascii", "song.wav", false},
		{"narrow utf8", "müsik/ö.wav", false},
		{"wide ascii", "song.wav", true},
		{"wide bmp", "müsik/ö.wav", true},
		{"wide surrogate", "track-\U0001F3B5.ogg", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := EncodeString(tt.in, tt.wide)
			got := DecodeString(StringPtr(buf), tt.wide)
			if got != tt.in {
				t.Errorf("DecodeString(EncodeString(%q)) = %q", tt.in, got)
			}
		})
	}
}

func TestEncodeString_Terminated(t *testing.T) {
	t.Parallel()

	narrow := EncodeString("ab", false)
	if len(narrow) != 3 || narrow[2] != 0 {
		t.Errorf("narrow buffer = %v, want NUL terminated 3 bytes", narrow)
	}

	wide := EncodeString("ab", true)
	if len(wide) != 6 || wide[4] != 0 || wide[5] != 0 {
		t.Errorf("wide buffer = %v, want NUL terminated 6 bytes", wide)
	}
}

func TestDecodeString_MismatchedEncoding(t *testing.T) {
	t.Parallel()

	// A wide string read as narrow stops at the first high byte of 'a'.
	buf := EncodeString("abc", true)
	if got := DecodeString(unsafe.Pointer(&buf[0]), false); got == "abc" {
		t.Errorf("wide data read as narrow = %q, expected it to be misinterpreted", got)
	}
}

func TestGoString_Nil(t *testing.T) {
	t.Parallel()

	if got := GoString(nil); got != "" {
		t.Errorf("GoString(nil) = %q, want empty", got)
	}
	if got := DecodeString(nil, true); got != "" {
		t.Errorf("DecodeString(nil) = %q, want empty", got)
	}
}
