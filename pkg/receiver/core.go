// Package receiver ties the ALC/LCT, FDT, and File layers into one session
// core: symbol routing by TOI, FDT bootstrap and reconciliation, and
// completion dispatch, all under a single mutex (spec §5).
package receiver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"flutecore/internal/flog"
	"flutecore/pkg/alc"
	"flutecore/pkg/fdt"
	"flutecore/pkg/file"
	"flutecore/pkg/ident"
)

var logger = flog.New("receiver")

// bootstrapContentLocation marks the reserved TOI=0 slot so
// RemoveExpiredFiles never auto-evicts an in-progress FDT reception.
const bootstrapContentLocation = "bootstrap.multipart"

// CompletionSink is invoked exactly once per file that reaches complete =
// true. It runs while Core's internal lock is held (spec §5) — sinks doing
// real work must hand off to their own executor rather than block here.
type CompletionSink func(f *file.File)

// Config configures a Core at construction.
type Config struct {
	TSI       uint64
	EnableMD5 bool
	Sink      CompletionSink
}

// Core is a single FLUTE receive session.
type Core struct {
	tsi       uint64
	enableMD5 bool
	sink      CompletionSink

	mu sync.Mutex

	currentFDTInstance *uint16 // instance id the TOI=0 slot is currently receiving
	lastAcceptedFDT    *uint16 // instance id of the last FDT actually reconciled
	fdtDoc             *fdt.Document
	files              map[uint64]*file.File
	stopped            bool
}

// New creates a Core for one session TSI.
func New(cfg Config) *Core {
	return &Core{
		tsi:       cfg.TSI,
		enableMD5: cfg.EnableMD5,
		sink:      cfg.Sink,
		files:     make(map[uint64]*file.File),
	}
}

// Stop flips a flag checked at the top of HandleReceivedPacket; any call
// already past that check runs to completion (spec §5).
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// HandleReceivedPacket is the one entry point the I/O adapter drives: parse
// the ALC datagram, route its symbols to the right File, and reconcile the
// file map on TOI=0 (FDT) completion.
func (c *Core) HandleReceivedPacket(data []byte) {
	pkt, err := alc.Parse(data)
	if err != nil {
		logger.Warnf("dropping packet: %v", err)
		return
	}
	if pkt.Tsi != c.tsi {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	toi := pkt.Toi.ToUint64()

	if toi == 0 {
		c.bootstrapFDT(pkt)
	}

	f, ok := c.files[toi]
	if !ok || f.IsComplete() {
		return
	}

	symbolLength := f.Meta.FecOti.EncodingSymbolLength
	symbols, err := alc.ParseSymbols(pkt.Payload(), symbolLength)
	if err != nil {
		logger.Warnf("dropping payload for toi=%d: %v", toi, err)
		return
	}

	var justCompleted bool
	for _, sym := range symbols {
		done, err := f.PutSymbol(sym.Sbn, sym.Esi, sym.Data)
		if err != nil {
			if errors.Is(err, file.ErrMd5Mismatch) {
				logger.Warnf("toi=%d Content-MD5 mismatch, resetting", toi)
			} else {
				logger.Warnf("toi=%d: %v", toi, err)
			}
			continue
		}
		if done {
			justCompleted = true
		}
	}

	if !justCompleted {
		return
	}

	if toi == 0 {
		c.handleFDTComplete(f)
		delete(c.files, 0)
		return
	}

	if c.sink != nil {
		c.sink(f)
	}
	delete(c.files, toi)
}

// bootstrapFDT allocates (or re-allocates, on instance change) the TOI=0
// receiving File once this packet's EXT_FDT names a new instance id. This
// fires on any change of instance id, independent of the windowed
// "is newer" gate applied later when deciding whether to actually
// reconcile the file map (spec §4.H step 4 vs §4.G's monotonicity rule).
func (c *Core) bootstrapFDT(pkt *alc.Packet) {
	if pkt.FDT == nil || !pkt.HasOti {
		return
	}
	if c.currentFDTInstance != nil && *c.currentFDTInstance == pkt.FDT.InstanceID {
		return
	}

	delete(c.files, 0)

	meta := file.Meta{
		TOI:             ident.Zero,
		ContentLocation: bootstrapContentLocation,
		ContentLength:   pkt.Oti.TransferLength,
		FecOti:          pkt.Oti,
		FDTInstanceID:   pkt.FDT.InstanceID,
	}
	f, err := file.New(meta, false)
	if err != nil {
		logger.Warnf("cannot allocate FDT bootstrap file: %v", err)
		return
	}

	instanceID := pkt.FDT.InstanceID
	c.currentFDTInstance = &instanceID
	c.files[0] = f
}

// handleFDTComplete parses a just-completed TOI=0 buffer as a new FDT. If
// its instance id is not strictly newer (in the 16-bit modulo window sense)
// than the last accepted instance, the parse result is discarded and the
// file map is left untouched — only the windowed-newer instance actually
// replaces the current FDT (spec §4.G).
func (c *Core) handleFDTComplete(bootstrapFile *file.File) {
	instanceID := bootstrapFile.Meta.FDTInstanceID

	if c.lastAcceptedFDT != nil && !fdt.IsNewerInstance(instanceID, *c.lastAcceptedFDT) {
		return
	}

	doc, err := fdt.Parse(bootstrapFile.Buffer)
	if err != nil {
		logger.Warnf("malformed FDT, keeping previous instance: %v", err)
		return
	}

	c.fdtDoc = doc
	c.lastAcceptedFDT = &instanceID

	listed := make(map[uint64]bool, len(doc.Files))
	for _, entry := range doc.Files {
		toiVal, err := parseTOI(entry.TOI)
		if err != nil {
			logger.Warnf("FDT entry with unparseable TOI %q: %v", entry.TOI, err)
			continue
		}
		listed[toiVal] = true

		if _, ok := c.files[toiVal]; ok {
			continue // already receiving, or complete and awaiting dispatch: leave as-is
		}

		resolvedOti, err := doc.EffectiveOti(entry)
		if err != nil {
			logger.Warnf("FDT entry %q: %v", entry.ContentLocation, err)
			continue
		}
		if !resolvedOti.FecEncodingID.Implemented() {
			logger.Warnf("FDT entry %q: %v", entry.ContentLocation, fmt.Errorf("%w: %s", file.ErrUnknownScheme, resolvedOti.FecEncodingID))
			continue
		}

		expires, err := entry.ExpiresAt(doc)
		if err != nil {
			expires = time.Time{}
		}

		newFile, err := file.New(file.Meta{
			TOI:             ident.FromUint64(toiVal),
			ContentLocation: entry.ContentLocation,
			ContentType:     derefString(entry.ContentType),
			ContentLength:   entry.GetTransferLength(),
			ContentMD5:      derefString(entry.ContentMD5),
			Expires:         expires,
			FecOti:          resolvedOti,
			FDTInstanceID:   instanceID,
		}, c.enableMD5)
		if err != nil {
			logger.Warnf("cannot allocate file for %q: %v", entry.ContentLocation, err)
			continue
		}
		c.files[toiVal] = newFile
	}

	for toiVal, f := range c.files {
		if toiVal == 0 {
			continue
		}
		if !listed[toiVal] && !f.IsComplete() {
			delete(c.files, toiVal)
		}
	}
}

// FileList returns a snapshot of the files currently tracked, keyed by TOI.
func (c *Core) FileList() map[uint64]*file.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint64]*file.File, len(c.files))
	for k, v := range c.files {
		out[k] = v
	}
	return out
}

// RemoveExpiredFiles evicts files older than maxAge, except the reserved
// FDT bootstrap entry.
func (c *Core) RemoveExpiredFiles(maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for toi, f := range c.files {
		if f.Meta.ContentLocation == bootstrapContentLocation {
			continue
		}
		if now.Sub(f.ReceivedAt) > maxAge {
			delete(c.files, toi)
		}
	}
}

// RemoveFileWithContentLocation evicts a specific file by its content
// location, regardless of age or completion state.
func (c *Core) RemoveFileWithContentLocation(cl string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for toi, f := range c.files {
		if f.Meta.ContentLocation == cl {
			delete(c.files, toi)
		}
	}
}

func parseTOI(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
