package native

import (
	"testing"
	"unsafe"
)

func TestStructLayouts(t *testing.T) {
	t.Parallel()

	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout expectations are for 64-bit targets")
	}

	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"DeviceInfo size", unsafe.Sizeof(DeviceInfo{}), 24},
		{"DeviceInfo.Driver", unsafe.Offsetof(DeviceInfo{}.Driver), 8},
		{"DeviceInfo.Flags", unsafe.Offsetof(DeviceInfo{}.Flags), 16},
		{"Info size", unsafe.Sizeof(Info{}), 56},
		{"Info.Latency", unsafe.Offsetof(Info{}.Latency), 40},
		{"Info.Freq", unsafe.Offsetof(Info{}.Freq), 52},
		{"ChannelInfo size", unsafe.Sizeof(ChannelInfo{}), 40},
		{"ChannelInfo.CType", unsafe.Offsetof(ChannelInfo{}.CType), 12},
		{"ChannelInfo.Sample", unsafe.Offsetof(ChannelInfo{}.Sample), 24},
		{"ChannelInfo.Filename", unsafe.Offsetof(ChannelInfo{}.Filename), 32},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}
