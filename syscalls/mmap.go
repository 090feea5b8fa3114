package syscalls

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// DataSource hands out the immutable buffers behind each dataset. The same
// buffer must be returned for repeated requests within a run.
type DataSource interface {
	Transaction() (*vm.Buffer, error)
	Cell(source types.CellSource, index uint64) (*vm.Buffer, error)
}

// MmapSyscalls services MmapTx and MmapCell.
type MmapSyscalls struct {
	data DataSource
}

func NewMmapSyscalls(data DataSource) *MmapSyscalls {
	initPrometheusMetrics()
	return &MmapSyscalls{data: data}
}

func (s *MmapSyscalls) Initialize(*vm.Machine) error {
	return nil
}

func (s *MmapSyscalls) Ecall(m *vm.Machine) (bool, error) {
	num := m.Registers.Get(vm.A7)
	var err error
	switch num {
	case MmapTx:
		err = s.mmapTx(m)
	case MmapCell:
		err = s.mmapCell(m)
	default:
		return false, nil
	}
	if err != nil {
		observeSyscall(num, "fault")
		log.Debug(log.SyscallMonitoring, "mmap faulted", "syscall", syscallName(num), "fault", vmerrors.FaultName(err), "err", err)
		return false, err
	}
	return true, nil
}

// request is the register view of an mmap call.
type request struct {
	addr     uint64
	sizeAddr uint64
	mode     Mode
	offset   uint64
}

func readRequest(m *vm.Machine) (request, error) {
	mode, err := ParseMode(m.Registers.Get(vm.A2))
	if err != nil {
		return request{}, err
	}
	return request{
		addr:     m.Registers.Get(vm.A0),
		sizeAddr: m.Registers.Get(vm.A1),
		mode:     mode,
		offset:   m.Registers.Get(vm.A3),
	}, nil
}

func (s *MmapSyscalls) mmapTx(m *vm.Machine) error {
	req, err := readRequest(m)
	if err != nil {
		return err
	}
	buf, err := s.data.Transaction()
	if err != nil {
		return err
	}
	return negotiate(m, MmapTx, "tx", req, buf)
}

func (s *MmapSyscalls) mmapCell(m *vm.Machine) error {
	req, err := readRequest(m)
	if err != nil {
		return err
	}
	source, err := ParseSource(m.Registers.Get(vm.A5))
	if err != nil {
		return err
	}
	index := m.Registers.Get(vm.A4)
	buf, err := s.data.Cell(source, index)
	if err != nil {
		return err
	}
	return negotiate(m, MmapCell, source.String(), req, buf)
}

// negotiate runs the size handshake for buf and installs the mapping. The
// destination address comes from the request, so A0 may be overwritten with
// the status afterwards.
func negotiate(m *vm.Machine, num uint64, kind string, req request, buf *vm.Buffer) error {
	capacity, err := m.Memory.LoadU64(req.sizeAddr)
	if err != nil {
		return err
	}
	length := buf.Len()

	switch req.mode {
	case ModeAll:
		if capacity < length {
			if err := m.Memory.StoreU64(req.sizeAddr, length); err != nil {
				return err
			}
			m.Registers.Set(vm.A0, OverrideLen)
			observeSyscall(num, "override_len")
			log.Trace(log.SyscallMonitoring, "mmap override len", "kind", kind, "capacity", capacity, "len", length)
			return nil
		}
		if err := m.Memory.MmapReadOnly(req.addr, length, buf, 0); err != nil {
			return err
		}
		m.Registers.Set(vm.A0, Success)
		observeMapping(num, kind, length)
		log.Trace(log.SyscallMonitoring, "mmap all", "kind", kind, "addr", fmt.Sprintf("0x%x", req.addr), "len", length)
	case ModePartial:
		if req.offset > length {
			return fmt.Errorf("%w: offset %d beyond %s of %d bytes", vmerrors.ErrFMemory, req.offset, kind, length)
		}
		realSize := min(capacity, length-req.offset)
		if err := m.Memory.MmapReadOnly(req.addr, realSize, buf, req.offset); err != nil {
			return err
		}
		if err := m.Memory.StoreU64(req.sizeAddr, realSize); err != nil {
			return err
		}
		m.Registers.Set(vm.A0, Success)
		observeMapping(num, kind, realSize)
		log.Trace(log.SyscallMonitoring, "mmap partial", "kind", kind, "addr", fmt.Sprintf("0x%x", req.addr), "offset", req.offset, "len", realSize)
	}
	return nil
}

func observeMapping(num uint64, kind string, length uint64) {
	observeSyscall(num, "success")
	prometheusMappings.WithLabelValues(kind).Inc()
	prometheusMappedBytes.Add(float64(length))
}
