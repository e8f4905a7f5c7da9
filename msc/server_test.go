package msc

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aligator/romfat"
	"github.com/aligator/romfat/persist"
	"github.com/google/go-cmp/cmp"
)

// stream concatenates command block wrappers and OUT data.
type stream struct {
	bytes.Buffer
	tag uint32
}

func (s *stream) command(cbw *CommandBlockWrapper, data []byte) *stream {
	s.tag++
	cbw.Tag = s.tag

	buf := make([]byte, CBWSize)
	cbw.MarshalTo(buf)
	s.Write(buf)
	s.Write(data)
	return s
}

func nextCSW(t *testing.T, out *bytes.Buffer) CommandStatusWrapper {
	t.Helper()
	var csw CommandStatusWrapper
	if !ParseCSW(out.Next(CSWSize), &csw) {
		t.Fatalf("no valid status wrapper in the output")
	}
	return csw
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errBroken
}

func TestServer_Serve(t *testing.T) {
	v := newTestVolume(t)
	flag := persist.NewMemoryFlag(true)
	s := NewServer(NewResponder(romfat.NewResolver(v, flag, flag, nil), "romfat", "Virtual Disk", "1.0"))

	in := &stream{}
	in.command(newCBW(CBWFlagDataOut, 0, SCSITestUnitReady), nil).
		command(newCBW(CBWFlagDataIn, SenseFixedSize, SCSIRequestSense, 0, 0, 0, SenseFixedSize, 0), nil).
		command(newCBW(CBWFlagDataIn, 36, SCSIInquiry, 0, 0, 0, 36, 0), nil).
		command(newCBW(CBWFlagDataOut, BlockSize, blockCommand(SCSIWrite10, romfat.DropHereLBA, 1)...), make([]byte, BlockSize)).
		command(newCBW(CBWFlagDataIn, 2*BlockSize, blockCommand(SCSIRead10, romfat.RootDirLBA, 2)...), nil).
		command(newCBW(CBWFlagDataOut, 0, SCSITestUnitReady), nil)

	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Server.Serve() error = %v", err)
	}

	if csw := nextCSW(t, &out); csw.Tag != 1 || csw.Status != CSWStatusFailed {
		t.Errorf("TEST UNIT READY = %+v, want a failure for the new medium", csw)
	}

	sense := out.Next(SenseFixedSize)
	if sense[2] != SenseUnitAttention || sense[12] != ASCNotReadyToReadyChange {
		t.Errorf("REQUEST SENSE = key 0x%02X asc 0x%02X, want unit attention", sense[2], sense[12])
	}
	if csw := nextCSW(t, &out); csw.Tag != 2 || csw.Status != CSWStatusGood {
		t.Errorf("REQUEST SENSE status = %+v", csw)
	}

	if inquiry := out.Next(InquiryStandardSize); inquiry[1] != InquiryRMB {
		t.Errorf("INQUIRY does not report a removable medium")
	}
	if csw := nextCSW(t, &out); csw.Tag != 3 || csw.Status != CSWStatusGood {
		t.Errorf("INQUIRY status = %+v", csw)
	}

	if diff := cmp.Diff(CommandStatusWrapper{Signature: CSWSignature, Tag: 4}, nextCSW(t, &out)); diff != "" {
		t.Errorf("WRITE(10) status mismatch (-want +got):\n%s", diff)
	}
	if flag.Enabled() {
		t.Errorf("the write to the trigger block did not clear the flag")
	}

	if diff := cmp.Diff(volumeBlocks(t, v, romfat.RootDirLBA, 2), out.Next(2*BlockSize)); diff != "" {
		t.Errorf("READ(10) data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(CommandStatusWrapper{Signature: CSWSignature, Tag: 5}, nextCSW(t, &out)); diff != "" {
		t.Errorf("READ(10) status mismatch (-want +got):\n%s", diff)
	}

	if csw := nextCSW(t, &out); csw.Tag != 6 || csw.Status != CSWStatusGood {
		t.Errorf("TEST UNIT READY = %+v, want success", csw)
	}
	if out.Len() != 0 {
		t.Errorf("%v unexpected bytes in the output", out.Len())
	}
}

func TestServer_Serve_discardsUnusedData(t *testing.T) {
	s := NewServer(newReadyResponder(t, romfat.NewResolver(newTestVolume(t), nil, nil, nil)))

	in := &stream{}
	in.command(newCBW(CBWFlagDataOut, 1024, 0x55), bytes.Repeat([]byte{0x55}, 1024)).
		command(newCBW(CBWFlagDataIn, SenseDescriptorSize, SCSIRequestSense, 0x01, 0, 0, SenseDescriptorSize, 0), nil)

	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Server.Serve() error = %v", err)
	}

	want := CommandStatusWrapper{Signature: CSWSignature, Tag: 1, DataResidue: 1024, Status: CSWStatusFailed}
	if diff := cmp.Diff(want, nextCSW(t, &out)); diff != "" {
		t.Errorf("unknown command status mismatch (-want +got):\n%s", diff)
	}

	wantSense := []byte{SenseDescriptorCurrent, SenseIllegalRequest, ASCInvalidCommand, 0x00, 0x00, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(wantSense, out.Next(SenseDescriptorSize)); diff != "" {
		t.Errorf("REQUEST SENSE mismatch (-want +got):\n%s", diff)
	}
	if csw := nextCSW(t, &out); csw.Tag != 2 || csw.Status != CSWStatusGood {
		t.Errorf("REQUEST SENSE status = %+v", csw)
	}
}

func TestServer_Serve_errors(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{
			name:    "empty stream",
			in:      nil,
			wantErr: nil,
		},
		{
			name:    "truncated wrapper",
			in:      readCBW[:10],
			wantErr: ErrInvalidCBW,
		},
		{
			name: "status wrapper instead of a command",
			in: func() []byte {
				buf := make([]byte, CBWSize)
				NewCSW(1, 0, CSWStatusGood).MarshalTo(buf)
				return buf
			}(),
			wantErr: ErrInvalidCBW,
		},
		{
			name: "truncated data phase",
			in: func() []byte {
				in := &stream{}
				in.command(newCBW(CBWFlagDataOut, 2*BlockSize, blockCommand(SCSIWrite10, 20, 2)...), make([]byte, 700))
				return in.Bytes()
			}(),
			wantErr: ErrTransport,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(newReadyResponder(t, romfat.NewResolver(newTestVolume(t), nil, nil, nil)))

			err := s.Serve(context.Background(), bytes.NewReader(tt.in), &bytes.Buffer{})
			if (tt.wantErr == nil && err != nil) || !errors.Is(err, tt.wantErr) {
				t.Errorf("Server.Serve() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServer_Serve_failingWriter(t *testing.T) {
	s := NewServer(newReadyResponder(t, romfat.NewResolver(newTestVolume(t), nil, nil, nil)))

	in := &stream{}
	in.command(newCBW(CBWFlagDataOut, 0, SCSITestUnitReady), nil)

	err := s.Serve(context.Background(), in, failingWriter{})
	if !errors.Is(err, ErrTransport) || !errors.Is(err, errBroken) {
		t.Errorf("Server.Serve() error = %v, wantErr %v", err, ErrTransport)
	}
}

func TestServer_Serve_cancelled(t *testing.T) {
	s := NewServer(newReadyResponder(t, romfat.NewResolver(newTestVolume(t), nil, nil, nil)))

	in := &stream{}
	in.command(newCBW(CBWFlagDataOut, 0, SCSITestUnitReady), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := s.Serve(ctx, in, &out); !errors.Is(err, context.Canceled) {
		t.Errorf("Server.Serve() error = %v, wantErr %v", err, context.Canceled)
	}
	if out.Len() != 0 {
		t.Errorf("Server.Serve() wrote %v bytes after cancellation", out.Len())
	}
}
