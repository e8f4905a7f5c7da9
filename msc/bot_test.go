package msc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var readCBW = []byte{
	0x55, 0x53, 0x42, 0x43, // signature
	0x78, 0x56, 0x34, 0x12, // tag
	0x00, 0x04, 0x00, 0x00, // 1024 bytes
	0x80,                   // IN
	0x00,                   // LUN
	0x0A,                   // CDB length

	// READ(10) of 2 blocks at 5
	0x28, 0x00, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x02, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func TestParseCBW(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   CommandBlockWrapper
		wantOk bool
	}{
		{
			name: "read command",
			data: readCBW,
			want: CommandBlockWrapper{
				Signature:          CBWSignature,
				Tag:                0x12345678,
				DataTransferLength: 1024,
				Flags:              CBWFlagDataIn,
				CBLength:           10,
				CB:                 [16]byte{SCSIRead10, 0, 0, 0, 0, 5, 0, 0, 2},
			},
			wantOk: true,
		},
		{
			name: "reserved bits are masked",
			data: func() []byte {
				data := append([]byte(nil), readCBW...)
				data[13] = 0xF1
				data[14] = 0xEA
				return data
			}(),
			want: CommandBlockWrapper{
				Signature:          CBWSignature,
				Tag:                0x12345678,
				DataTransferLength: 1024,
				Flags:              CBWFlagDataIn,
				LUN:                1,
				CBLength:           10,
				CB:                 [16]byte{SCSIRead10, 0, 0, 0, 0, 5, 0, 0, 2},
			},
			wantOk: true,
		},
		{
			name:   "too short",
			data:   readCBW[:CBWSize-1],
			wantOk: false,
		},
		{
			name: "wrong signature",
			data: func() []byte {
				data := append([]byte(nil), readCBW...)
				data[3] = 0x53
				return data
			}(),
			want:   CommandBlockWrapper{Signature: 0x53425355},
			wantOk: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CommandBlockWrapper
			if ok := ParseCBW(tt.data, &got); ok != tt.wantOk {
				t.Fatalf("ParseCBW() = %v, want %v", ok, tt.wantOk)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCBW() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandBlockWrapper_MarshalTo(t *testing.T) {
	var cbw CommandBlockWrapper
	if !ParseCBW(readCBW, &cbw) {
		t.Fatal("ParseCBW() failed")
	}

	buf := make([]byte, CBWSize)
	if n := cbw.MarshalTo(buf); n != CBWSize {
		t.Fatalf("CommandBlockWrapper.MarshalTo() = %v, want %v", n, CBWSize)
	}
	if diff := cmp.Diff(readCBW, buf); diff != "" {
		t.Errorf("CommandBlockWrapper.MarshalTo() mismatch (-want +got):\n%s", diff)
	}

	if n := cbw.MarshalTo(buf[:CBWSize-1]); n != 0 {
		t.Errorf("CommandBlockWrapper.MarshalTo() on a short buffer = %v, want 0", n)
	}
}

func TestCommandBlockWrapper_direction(t *testing.T) {
	tests := []struct {
		name        string
		flags       uint8
		wantDataIn  bool
		wantDataOut bool
	}{
		{name: "in", flags: CBWFlagDataIn, wantDataIn: true},
		{name: "out", flags: CBWFlagDataOut, wantDataOut: true},
		{name: "in with reserved bits", flags: 0xFF, wantDataIn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cbw := &CommandBlockWrapper{Flags: tt.flags}
			if got := cbw.IsDataIn(); got != tt.wantDataIn {
				t.Errorf("IsDataIn() = %v, want %v", got, tt.wantDataIn)
			}
			if got := cbw.IsDataOut(); got != tt.wantDataOut {
				t.Errorf("IsDataOut() = %v, want %v", got, tt.wantDataOut)
			}
		})
	}
}

func TestCommandStatusWrapper_MarshalTo(t *testing.T) {
	csw := NewCSW(0x12345678, 512, CSWStatusFailed)

	buf := make([]byte, CSWSize+2)
	if n := csw.MarshalTo(buf); n != CSWSize {
		t.Fatalf("CommandStatusWrapper.MarshalTo() = %v, want %v", n, CSWSize)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x53,
		0x78, 0x56, 0x34, 0x12,
		0x00, 0x02, 0x00, 0x00,
		0x01,
		0x00, 0x00,
	}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("CommandStatusWrapper.MarshalTo() mismatch (-want +got):\n%s", diff)
	}

	var parsed CommandStatusWrapper
	if !ParseCSW(buf, &parsed) {
		t.Fatal("ParseCSW() failed")
	}
	if diff := cmp.Diff(*csw, parsed); diff != "" {
		t.Errorf("ParseCSW() mismatch (-want +got):\n%s", diff)
	}

	if n := csw.MarshalTo(buf[:CSWSize-1]); n != 0 {
		t.Errorf("CommandStatusWrapper.MarshalTo() on a short buffer = %v, want 0", n)
	}
	if ParseCSW(readCBW, &parsed) {
		t.Errorf("ParseCSW() accepted a command block wrapper")
	}
}
