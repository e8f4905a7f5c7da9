package romfat

import (
	"github.com/aligator/romfat/logging"
)

// Resolver serves the blocks of a Volume and watches for the trigger write.
// It is not safe for concurrent use, the transport issues one request at a time.
type Resolver struct {
	volume  *Volume
	enabler Enabler
	flag    FlagSetter
	hook    SessionHook

	scratch [SectorSize]byte
}

// NewResolver creates a Resolver for volume. All collaborators may be nil.
// Without an Enabler the trigger write never fires.
func NewResolver(volume *Volume, enabler Enabler, flag FlagSetter, hook SessionHook) *Resolver {
	return &Resolver{
		volume:  volume,
		enabler: enabler,
		flag:    flag,
		hook:    hook,
	}
}

// Read returns block lba in the internal scratch buffer.
// The slice is only valid until the next call of Read.
func (r *Resolver) Read(lba uint32) ([]byte, error) {
	if err := r.ReadInto(lba, r.scratch[:]); err != nil {
		return nil, err
	}
	return r.scratch[:], nil
}

// ReadInto writes block lba into dst, which must hold at least SectorSize bytes.
func (r *Resolver) ReadInto(lba uint32, dst []byte) error {
	err := r.volume.ReadBlock(lba, dst)
	if err != nil {
		logging.Debug(logging.ComponentResolver, "illegal read", "lba", lba, "sectors", r.volume.TotalSectors())
	}
	return err
}

// Write discards data. A write to the trigger block while enabled clears the persisted flag.
// It never fails, a broken flag store is only logged.
func (r *Resolver) Write(lba uint32, data []byte) error {
	if lba != r.volume.TriggerLBA() || r.enabler == nil || !r.enabler.Enabled() {
		return nil
	}

	logging.Info(logging.ComponentResolver, "trigger write", "lba", lba, "size", len(data))
	if r.flag == nil {
		return nil
	}
	if err := r.flag.SetPersistentFlag(false); err != nil {
		logging.Warn(logging.ComponentResolver, "could not clear the enabled flag", "error", err)
	}
	return nil
}

// Stop forwards the START STOP UNIT code to the session hook.
func (r *Resolver) Stop(code uint8) {
	logging.Info(logging.ComponentResolver, "stop", "code", code)
	if r.hook != nil {
		r.hook.SessionStopped(code)
	}
}

func (r *Resolver) BlockCount() uint32 {
	return r.volume.TotalSectors()
}
