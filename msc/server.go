package msc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/logging"
)

// Server speaks the Bulk-Only Transport on a pair of byte streams:
// in carries command block wrappers and OUT data, out carries IN data and status wrappers.
type Server struct {
	responder *Responder

	cbw    CommandBlockWrapper
	cbwBuf [CBWSize]byte
	cswBuf [CSWSize]byte
}

func NewServer(responder *Responder) *Server {
	return &Server{
		responder: responder,
	}
}

// Serve handles one command after the other until in is exhausted or ctx is cancelled.
// Cancellation is checked between commands. A clean end of in returns nil.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.processCBW(in, out)
		if errors.Is(err, io.EOF) {
			logging.Debug(logging.ComponentMSC, "end of command stream")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// processCBW reads and processes a Command Block Wrapper.
func (s *Server) processCBW(in io.Reader, out io.Writer) error {
	n, err := io.ReadFull(in, s.cbwBuf[:])
	if err == io.EOF {
		return err
	}
	if err != nil {
		logging.Warn(logging.ComponentMSC, "invalid CBW size",
			"expected", CBWSize,
			"got", n)
		return checkpoint.Wrap(err, ErrInvalidCBW)
	}

	if !ParseCBW(s.cbwBuf[:], &s.cbw) {
		logging.Warn(logging.ComponentMSC, "invalid CBW signature")
		return checkpoint.Wrap(fmt.Errorf("signature 0x%08X", s.cbw.Signature), ErrInvalidCBW)
	}

	logging.Debug(logging.ComponentMSC, "CBW received",
		"tag", s.cbw.Tag,
		"dataLen", s.cbw.DataTransferLength,
		"flags", s.cbw.Flags,
		"lun", s.cbw.LUN,
		"cbLen", s.cbw.CBLength,
		"opcode", s.cbw.CB[0])

	status, residue, err := s.responder.Handle(&s.cbw, in, out)
	if err != nil {
		return err
	}

	return s.sendCSW(out, status, residue)
}

// sendCSW sends a Command Status Wrapper.
func (s *Server) sendCSW(out io.Writer, status uint8, residue uint32) error {
	csw := NewCSW(s.cbw.Tag, residue, status)
	n := csw.MarshalTo(s.cswBuf[:])

	if _, err := out.Write(s.cswBuf[:n]); err != nil {
		return checkpoint.Wrap(err, ErrTransport)
	}

	logging.Debug(logging.ComponentMSC, "CSW sent",
		"tag", csw.Tag,
		"status", status,
		"residue", residue)
	return nil
}
