package location

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"agent-fleettrack/internal/geo"
	"agent-fleettrack/internal/track"
)

const knotsToMps = 0.514444

// ErrNoFix is returned while the receiver has not produced a valid
// position yet.
var ErrNoFix = errors.New("no gps fix available")

var openSerial = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	return serial.Open(opts)
}

var nowFn = time.Now

// SerialNMEA reads RMC sentences from a serial GPS receiver and keeps
// the latest valid fix. Device access stands in for the platform
// permission model: opening the port successfully means granted, an
// open failure means denied until the next request.
type SerialNMEA struct {
	portName string
	baudRate uint

	mu         sync.Mutex
	permission track.Permission
	latest     *track.Sample
	port       io.ReadWriteCloser
	quit       chan struct{}
}

func NewSerialNMEA(portName string, baudRate int) *SerialNMEA {
	if baudRate <= 0 {
		baudRate = 9600
	}
	return &SerialNMEA{
		portName:   portName,
		baudRate:   uint(baudRate),
		permission: track.PermissionUndetermined,
	}
}

func (p *SerialNMEA) Permission() track.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

// RequestPermission attempts to open the GPS device and, on success,
// starts the background read loop. Denied is not terminal: calling
// again retries the open.
func (p *SerialNMEA) RequestPermission(_ context.Context) (track.Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.permission == track.PermissionGranted {
		return track.PermissionGranted, nil
	}

	port, err := openSerial(serial.OpenOptions{
		PortName:        p.portName,
		BaudRate:        p.baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		p.permission = track.PermissionDenied
		return track.PermissionDenied, err
	}

	p.port = port
	p.permission = track.PermissionGranted
	p.quit = make(chan struct{})
	go p.readLoop(port, p.quit)
	return track.PermissionGranted, nil
}

func (p *SerialNMEA) readLoop(port io.ReadWriteCloser, quit chan struct{}) {
	reader := bufio.NewReader(port)
	for {
		select {
		case <-quit:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy receivers emit partial sentences; skip them
			continue
		}
		if sentence.DataType() != nmea.TypeRMC {
			continue
		}
		m := sentence.(nmea.RMC)
		if string(m.Validity) != "A" {
			continue
		}

		s := track.Sample{
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Speed:     m.Speed * knotsToMps,
			Heading:   m.Course,
			Timestamp: nowFn(),
		}

		p.mu.Lock()
		p.latest = &s
		p.mu.Unlock()
	}
}

// Current returns the most recent valid fix.
func (p *SerialNMEA) Current(_ context.Context) (track.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.permission != track.PermissionGranted {
		return track.Sample{}, errors.New("gps device not open")
	}
	if p.latest == nil {
		return track.Sample{}, ErrNoFix
	}
	return *p.latest, nil
}

// Watch emits the latest fix whenever the interval elapses or the
// receiver moved at least the distance filter, whichever happens first.
func (p *SerialNMEA) Watch(opts track.WatchOptions, fn func(track.Sample)) (track.Subscription, error) {
	p.mu.Lock()
	if p.permission != track.PermissionGranted {
		p.mu.Unlock()
		return nil, errors.New("gps device not open")
	}
	p.mu.Unlock()

	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}

	quit := make(chan struct{})
	go func() {
		poll := time.NewTicker(opts.Interval / 10)
		defer poll.Stop()

		var lastEmit *track.Sample
		var lastEmitAt time.Time
		for {
			select {
			case <-quit:
				return
			case <-poll.C:
				p.mu.Lock()
				latest := p.latest
				p.mu.Unlock()
				if latest == nil {
					continue
				}

				due := time.Since(lastEmitAt) >= opts.Interval
				moved := lastEmit != nil && opts.DistanceFilterM > 0 &&
					geo.HaversineM(lastEmit.Latitude, lastEmit.Longitude, latest.Latitude, latest.Longitude) >= opts.DistanceFilterM
				if lastEmit == nil {
					due = true
				}
				if !due && !moved {
					continue
				}

				s := *latest
				lastEmit = &s
				lastEmitAt = time.Now()
				fn(s)
			}
		}
	}()

	return &watchSub{quit: quit}, nil
}

// Close stops the read loop and releases the device.
func (p *SerialNMEA) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit != nil {
		close(p.quit)
		p.quit = nil
	}
	if p.port != nil {
		_ = p.port.Close()
		p.port = nil
	}
	p.permission = track.PermissionUndetermined
	p.latest = nil
}

type watchSub struct {
	once sync.Once
	quit chan struct{}
}

func (w *watchSub) Remove() {
	w.once.Do(func() { close(w.quit) })
}
