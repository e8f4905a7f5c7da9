package msc

import (
	"errors"
	"io"
	"math"

	"github.com/aligator/romfat"
	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/logging"
)

// Responder executes SCSI commands against a block device.
// It keeps the sense data between commands and is not safe for concurrent use.
type Responder struct {
	dev     romfat.BlockDevice
	inquiry *InquiryResponse

	sense SenseData
	// contingent is set while an error condition waits to be fetched by REQUEST SENSE.
	contingent bool
	// keep makes the condition survive REQUEST SENSE, for example once the medium is gone.
	keep bool

	buf [BlockSize]byte
}

// NewResponder creates a Responder reporting the given identification in INQUIRY.
// The first command after creation sees a unit attention for the inserted medium.
func NewResponder(dev romfat.BlockDevice, vendor, product, revision string) *Responder {
	r := &Responder{
		inquiry: NewInquiryResponse(DeviceTypeDisk, true, vendor, product, revision),
	}
	r.ChangeMedia(dev)
	return r
}

// ChangeMedia swaps the block device. A nil device or one without blocks is an empty drive.
func (r *Responder) ChangeMedia(dev romfat.BlockDevice) {
	r.dev = dev
	r.contingent = true
	if r.mediaPresent() {
		r.setSense(SenseUnitAttention, ASCNotReadyToReadyChange, 0)
		r.keep = false
	} else {
		r.setSense(SenseNotReady, ASCMediumNotPresent, 0)
		r.keep = true
	}

	logging.Debug(logging.ComponentMSC, "media changed", "present", r.mediaPresent())
}

// Sense returns the sense data the next REQUEST SENSE reports.
func (r *Responder) Sense() SenseData {
	return r.sense
}

func (r *Responder) mediaPresent() bool {
	return r.dev != nil && r.dev.BlockCount() > 0
}

func (r *Responder) setSense(key, asc, ascq uint8) {
	r.sense = SenseData{Key: key, ASC: asc, ASCQ: ascq}
}

// fail sets the sense data and raises the error condition.
func (r *Responder) fail(key, asc uint8) {
	r.setSense(key, asc, 0)
	r.contingent = true
}

// Handle executes the command in cbw. The data phase is written to out for IN transfers
// and read from in for OUT transfers. Data the command did not consume is discarded,
// so in stays aligned to the next command block wrapper.
// The returned error is only set if the transport failed.
func (r *Responder) Handle(cbw *CommandBlockWrapper, in io.Reader, out io.Writer) (status uint8, residue uint32, err error) {
	p := &dataPhase{cbw: cbw, in: in, out: out}

	status = r.dispatch(cbw, p)
	if p.err != nil {
		return CSWStatusFailed, p.remaining(), p.err
	}
	residue = p.remaining()

	if err := p.drain(); err != nil {
		return CSWStatusFailed, residue, err
	}
	return status, residue, nil
}

func (r *Responder) dispatch(cbw *CommandBlockWrapper, p *dataPhase) uint8 {
	opcode := cbw.CB[0]

	logging.Debug(logging.ComponentMSC, "SCSI command",
		"opcode", opcode,
		"lun", cbw.LUN)

	if cbw.LUN != 0 {
		r.fail(SenseIllegalRequest, ASCInvalidFieldInCDB)
		return CSWStatusFailed
	}

	switch opcode {
	case SCSITestUnitReady:
		return r.handleTestUnitReady()
	case SCSIRequestSense:
		return r.handleRequestSense(cbw, p)
	case SCSIInquiry:
		return r.handleInquiry(cbw, p)
	case SCSIReadFormatCapacities:
		return r.handleReadFormatCapacities(p)
	case SCSIReadCapacity10:
		return r.handleReadCapacity10(p)
	case SCSIModeSense6:
		return r.handleModeSense6(p)
	case SCSIStartStopUnit:
		return r.handleStartStopUnit(cbw)
	case SCSIPreventAllowRemoval, SCSISynchronizeCache10, SCSIVerify10:
		return CSWStatusGood
	case SCSIReportLUNs:
		return r.handleReportLUNs(p)
	case SCSIRead10:
		return r.handleRead10(cbw, p)
	case SCSIWrite10:
		return r.handleWrite10(cbw, p)
	default:
		logging.Warn(logging.ComponentMSC, "unsupported SCSI command",
			"opcode", opcode)
		r.fail(SenseIllegalRequest, ASCInvalidCommand)
		return CSWStatusFailed
	}
}

// handleTestUnitReady fails as long as an error condition is pending.
func (r *Responder) handleTestUnitReady() uint8 {
	if r.contingent {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

// handleRequestSense reports the sense data in fixed or, if the DESC bit is set,
// descriptor format. Afterwards the condition is cleared unless it has to be kept.
func (r *Responder) handleRequestSense(cbw *CommandBlockWrapper, p *dataPhase) uint8 {
	var n int
	if cbw.CB[1]&0x01 != 0 {
		n = r.sense.MarshalDescriptor(r.buf[:])
	} else {
		n = r.sense.MarshalFixed(r.buf[:])
	}

	if alloc := int(cbw.CB[4]); alloc != 0 && alloc < n {
		n = alloc
	}

	if p.send(r.buf[:n]) != nil {
		return CSWStatusFailed
	}

	if !r.keep {
		r.contingent = false
		r.setSense(SenseNoSense, ASCNoAdditionalInfo, 0)
	}
	return CSWStatusGood
}

// handleInquiry returns the standard data or one of the two vital product data
// pages hosts ask for. Every unknown page is answered with an empty page 0x00.
func (r *Responder) handleInquiry(cbw *CommandBlockWrapper, p *dataPhase) uint8 {
	alloc := int(parseU16BE(cbw.CB[:], 3))
	if alloc == 0 {
		return CSWStatusGood
	}

	var data []byte
	if cbw.CB[1]&InquiryEVPD != 0 {
		if cbw.CB[2] == VPDDeviceIdentification {
			data = []byte{DeviceTypeDisk, VPDDeviceIdentification, 0x00, 0x00}
		} else {
			data = []byte{0x00, 0x00, 0x00, 0x00, 0x00}
		}
	} else {
		n := r.inquiry.MarshalTo(r.buf[:])
		data = r.buf[:n]
	}

	if alloc < len(data) {
		data = data[:alloc]
	}
	if p.send(data) != nil {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

func (r *Responder) handleReadFormatCapacities(p *dataPhase) uint8 {
	header := ReadFormatCapacitiesHeader{CapacityLength: 8}
	desc := CurrentMaximumCapacityDescriptor{
		DescType:    DescTypeNoMedia,
		BlockLength: BlockSize,
	}
	if r.mediaPresent() {
		desc.BlockCount = r.dev.BlockCount()
		desc.DescType = DescTypeFormatted
	}

	n := header.MarshalTo(r.buf[:])
	n += desc.MarshalTo(r.buf[n:])

	if p.send(r.buf[:n]) != nil {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

func (r *Responder) handleReadCapacity10(p *dataPhase) uint8 {
	if !r.mediaPresent() {
		r.fail(SenseNotReady, ASCMediumNotPresent)
		return CSWStatusFailed
	}

	resp := ReadCapacity10Response{
		LastLBA:     r.dev.BlockCount() - 1,
		BlockLength: BlockSize,
	}
	n := resp.MarshalTo(r.buf[:])

	if p.send(r.buf[:n]) != nil {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

// handleModeSense6 returns only the header without block descriptors or pages.
func (r *Responder) handleModeSense6(p *dataPhase) uint8 {
	resp := ModeSense6Response{ModeDataLength: 3}
	n := resp.MarshalTo(r.buf[:])

	if p.send(r.buf[:n]) != nil {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

// handleStartStopUnit forwards stop, eject and load to the device.
// The medium counts as removed afterwards and stays so until ChangeMedia.
func (r *Responder) handleStartStopUnit(cbw *CommandBlockWrapper) uint8 {
	code := cbw.CB[4]

	logging.Debug(logging.ComponentMSC, "START/STOP UNIT",
		"code", code)

	switch code {
	case StartStopStop, StartStopEject, StartStopLoad:
		if r.dev != nil {
			r.dev.Stop(code)
		}
		r.fail(SenseNotReady, ASCMediumNotPresent)
		r.keep = true
	}
	return CSWStatusGood
}

// handleReportLUNs returns an empty LUN list.
func (r *Responder) handleReportLUNs(p *dataPhase) uint8 {
	var list [8]byte
	if p.send(list[:]) != nil {
		return CSWStatusFailed
	}
	return CSWStatusGood
}

// handleRead10 sends the blocks one by one until all are sent or the device fails.
func (r *Responder) handleRead10(cbw *CommandBlockWrapper, p *dataPhase) uint8 {
	if !cbw.IsDataIn() {
		r.fail(SenseIllegalRequest, ASCInvalidFieldInCDB)
		return CSWStatusFailed
	}
	if !r.mediaPresent() {
		r.fail(SenseNotReady, ASCMediumNotPresent)
		return CSWStatusFailed
	}

	lba := parseU32BE(cbw.CB[:], 2)
	blocks := parseU16BE(cbw.CB[:], 7)
	if uint64(blocks)*BlockSize > uint64(cbw.DataTransferLength) {
		return CSWStatusPhaseError
	}

	logging.Debug(logging.ComponentMSC, "READ(10)",
		"lba", lba,
		"blocks", blocks)

	for i := uint32(0); i < uint32(blocks); i++ {
		current, err := blockAddress(lba, i)
		var data []byte
		if err == nil {
			data, err = r.dev.Read(current)
		}
		if err != nil {
			r.deviceError(err, current)
			return CSWStatusFailed
		}

		if p.send(data) != nil {
			return CSWStatusFailed
		}
	}
	return CSWStatusGood
}

// handleWrite10 receives the blocks one by one and hands them to the device.
func (r *Responder) handleWrite10(cbw *CommandBlockWrapper, p *dataPhase) uint8 {
	if !cbw.IsDataOut() {
		r.fail(SenseIllegalRequest, ASCInvalidFieldInCDB)
		return CSWStatusFailed
	}
	if !r.mediaPresent() {
		r.fail(SenseNotReady, ASCMediumNotPresent)
		return CSWStatusFailed
	}

	lba := parseU32BE(cbw.CB[:], 2)
	blocks := parseU16BE(cbw.CB[:], 7)
	if uint64(blocks)*BlockSize > uint64(cbw.DataTransferLength) {
		return CSWStatusPhaseError
	}

	logging.Debug(logging.ComponentMSC, "WRITE(10)",
		"lba", lba,
		"blocks", blocks)

	for i := uint32(0); i < uint32(blocks); i++ {
		if p.receive(r.buf[:]) != nil {
			return CSWStatusFailed
		}

		current, err := blockAddress(lba, i)
		if err == nil {
			err = r.dev.Write(current, r.buf[:])
		}
		if err != nil {
			r.deviceError(err, current)
			return CSWStatusFailed
		}
	}
	return CSWStatusGood
}

// deviceError maps an error of the block device to sense data.
func (r *Responder) deviceError(err error, lba uint32) {
	if errors.Is(err, romfat.ErrIllegalRequest) {
		logging.Debug(logging.ComponentMSC, "block out of range", "lba", lba)
		r.fail(SenseIllegalRequest, ASCLBAOutOfRange)
		return
	}

	logging.Warn(logging.ComponentMSC, "device error",
		"lba", lba,
		"error", err)
	r.fail(SenseMediumError, ASCNoAdditionalInfo)
}

func blockAddress(lba, offset uint32) (uint32, error) {
	if uint64(lba)+uint64(offset) > math.MaxUint32 {
		return math.MaxUint32, romfat.ErrIllegalRequest
	}
	return lba + offset, nil
}

// dataPhase moves the data of one command and counts the transferred bytes.
// It never moves more than the host announced in the wrapper.
type dataPhase struct {
	cbw  *CommandBlockWrapper
	in   io.Reader
	out  io.Writer
	done uint32
	err  error
}

func (p *dataPhase) remaining() uint32 {
	return p.cbw.DataTransferLength - p.done
}

// send writes data to the host, truncated to what the host expects.
// Nothing is sent for OUT transfers.
func (p *dataPhase) send(data []byte) error {
	if !p.cbw.IsDataIn() {
		return nil
	}
	if uint32(len(data)) > p.remaining() {
		data = data[:p.remaining()]
	}
	if len(data) == 0 {
		return nil
	}

	n, err := p.out.Write(data)
	p.done += uint32(n)
	if err != nil {
		p.err = checkpoint.Wrap(err, ErrTransport)
		return p.err
	}
	return nil
}

// receive fills buf with data from the host.
func (p *dataPhase) receive(buf []byte) error {
	if !p.cbw.IsDataOut() || uint32(len(buf)) > p.remaining() {
		p.err = checkpoint.Wrap(io.ErrUnexpectedEOF, ErrTransport)
		return p.err
	}

	n, err := io.ReadFull(p.in, buf)
	p.done += uint32(n)
	if err != nil {
		p.err = checkpoint.Wrap(err, ErrTransport)
		return p.err
	}
	return nil
}

// drain discards the OUT data the command did not read.
func (p *dataPhase) drain() error {
	if !p.cbw.IsDataOut() || p.remaining() == 0 {
		return nil
	}

	n, err := io.CopyN(io.Discard, p.in, int64(p.remaining()))
	p.done += uint32(n)
	if err != nil {
		return checkpoint.Wrap(err, ErrTransport)
	}
	return nil
}
