//go:build linux

package input

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"golang.org/x/sys/unix"
)

// uinput ioctls (include/uapi/linux/uinput.h).
const (
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
)

// uiSetPhys is _IOW('U', 108, char*); the size field depends on pointer width.
const uiSetPhys = 0x40000000 | uint(unsafe.Sizeof(uintptr(0)))<<16 | 'U'<<8 | 108

const (
	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0
	busHost   = 0x19
	absCnt    = 64
	nameSize  = 80
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name         [nameSize]byte
	ID           inputID
	FFEffectsMax uint32
	Absmax       [absCnt]int32
	Absmin       [absCnt]int32
	Absfuzz      [absCnt]int32
	Absflat      [absCnt]int32
}

// inputEvent mirrors struct input_event.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Uinput is a virtual keyboard registered through /dev/uinput.
type Uinput struct {
	f    *os.File
	once sync.Once
	err  error
}

// NewUinput registers a keyboard that can emit keys.
func NewUinput(cfg Config, keys []logic.Key) (*Uinput, error) {
	cfg = cfg.withDefaults()
	f, err := os.OpenFile(cfg.Path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	fd := int(f.Fd())

	fail := func(err error) (*Uinput, error) {
		f.Close()
		return nil, err
	}

	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		return fail(fmt.Errorf("enable key events: %w", err))
	}
	for _, k := range keys {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(k.Code)); err != nil {
			return fail(fmt.Errorf("enable key %s: %w", k.Name, err))
		}
	}
	if err := setPhys(fd, cfg.Phys); err != nil {
		return fail(fmt.Errorf("set phys: %w", err))
	}

	var dev uinputUserDev
	copy(dev.Name[:nameSize-1], cfg.Name)
	dev.ID = inputID{Bustype: busHost, Vendor: 0x0001, Product: 0x0001, Version: 1}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, &dev); err != nil {
		return fail(fmt.Errorf("encode device: %w", err))
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fail(fmt.Errorf("write device: %w", err))
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fail(fmt.Errorf("create device: %w", err))
	}

	return &Uinput{f: f}, nil
}

func setPhys(fd int, phys string) error {
	b := append([]byte(phys), 0)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(uiSetPhys), uintptr(unsafe.Pointer(&b[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// Report writes one EV_KEY event.
func (u *Uinput) Report(key logic.Key, pressed bool) error {
	var v int32
	if pressed {
		v = 1
	}
	return u.write(evKey, key.Code, v)
}

// Flush writes EV_SYN/SYN_REPORT so readers see the reported key.
func (u *Uinput) Flush() error {
	return u.write(evSyn, synReport, 0)
}

func (u *Uinput) write(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	if err := unix.Gettimeofday(&ev.Time); err != nil {
		return fmt.Errorf("timestamp event: %w", err)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, &ev); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := u.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close destroys the virtual device. Safe to call more than once.
func (u *Uinput) Close() error {
	u.once.Do(func() {
		var errs []error
		if err := unix.IoctlSetInt(int(u.f.Fd()), uiDevDestroy, 0); err != nil {
			errs = append(errs, fmt.Errorf("destroy device: %w", err))
		}
		if err := u.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close uinput: %w", err))
		}
		u.err = errors.Join(errs...)
	})
	return u.err
}
