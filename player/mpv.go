package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmevideo/bmevideo/constant"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/where"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// ErrProcessExited is reported when the mpv process dies underneath a loaded media.
var ErrProcessExited = errors.New("mpv exited")

// MPV implements Decoder on top of one long-lived mpv process driven over JSON-IPC.
// The process starts on the first Open and is reused by every later Open until Dispose.
type MPV struct {
	binary string
	extra  []string

	ipcMu      sync.Mutex
	socketPath string

	mu        sync.Mutex
	cmd       *exec.Cmd
	exited    chan struct{}
	events    *eventListener
	sink      func(Signal)
	uri       string
	disposing bool
	// sticky holds settings made before the process exists, applied once it starts.
	sticky map[string]any
}

// NewMPV creates a decoder that runs binary ("mpv" when empty) with extra arguments appended.
func NewMPV(binary string, extra ...string) *MPV {
	if binary == "" {
		binary = "mpv"
	}
	return &MPV{binary: binary, extra: extra, sticky: make(map[string]any)}
}

// Open loads uri, replacing the current media.
func (m *MPV) Open(uri string, sink func(Signal)) error {
	if err := m.ensureStarted(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sink = sink
	m.uri = uri
	m.mu.Unlock()

	_, err := m.sendCommand("loadfile", uri, "replace")
	return err
}

func (m *MPV) Play() error {
	return m.set("pause", false)
}

func (m *MPV) Pause() error {
	return m.set("pause", true)
}

func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand("seek", seconds, "absolute")
	return err
}

// Position returns time-pos, or NaN when nothing is playing.
func (m *MPV) Position() float64 {
	return m.floatOrNaN("time-pos")
}

// Duration returns the media duration, or NaN when unknown (live streams).
func (m *MPV) Duration() float64 {
	return m.floatOrNaN("duration")
}

func (m *MPV) SetMuted(muted bool) error {
	return m.set("mute", muted)
}

// SetVolume maps a linear gain in [0, 1] onto mpv's 0-100 scale.
func (m *MPV) SetVolume(volume float64) error {
	return m.set("volume", volume*100)
}

func (m *MPV) SetRate(rate float64) error {
	return m.set("speed", rate)
}

// Close stops the current media. The process stays idle for the next Open.
func (m *MPV) Close() error {
	m.mu.Lock()
	m.sink = nil
	m.uri = ""
	running := m.runningLocked()
	m.mu.Unlock()

	if !running {
		return nil
	}

	_, err := m.sendCommand("stop")
	return err
}

// Dispose quits the process and removes its socket.
func (m *MPV) Dispose() error {
	m.mu.Lock()
	m.disposing = true
	m.sink = nil
	events, exited, cmd := m.events, m.exited, m.cmd
	running := m.runningLocked()
	m.events = nil
	m.mu.Unlock()

	if events != nil {
		events.stop()
	}

	if running {
		_, _ = m.sendCommand("quit")

		select {
		case <-exited:
		case <-time.After(quitTimeout):
			_ = killProcess(cmd)
		}
	}

	if m.socketPath != "" {
		_ = os.Remove(m.socketPath)
	}
	return nil
}

func (m *MPV) runningLocked() bool {
	if m.cmd == nil || m.exited == nil {
		return false
	}
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}

// ensureStarted launches mpv if it is not running yet, or was killed since.
func (m *MPV) ensureStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposing {
		return errors.New("mpv decoder disposed")
	}
	if m.runningLocked() {
		return nil
	}

	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(where.Temp(), fmt.Sprintf("%s-%x.sock", constant.App, randomBytes))
	}

	// Stay idle and paused between sources; keep the last frame at EOF so eof-reached is observable.
	args := append([]string{
		"--idle=yes",
		"--pause",
		"--keep-open=yes",
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + m.socketPath,
	}, m.extra...)

	cmd := exec.Command(m.binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	m.cmd, m.exited = cmd, exited
	go m.reap(cmd, exited)

	if err := waitForSocket(m.socketPath, exited); err != nil {
		_ = killProcess(cmd)
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	events, err := listen(m.socketPath, m.onEvent)
	if err != nil {
		_ = killProcess(cmd)
		return err
	}
	m.events = events

	for property, value := range m.sticky {
		if _, err := m.sendCommand("set_property", property, value); err != nil {
			log.Warnf("mpv %s: %v", property, err)
		}
	}

	log.With(log.Fields{"socket": m.socketPath, "pid": cmd.Process.Pid}).Info("mpv started")
	return nil
}

// reap waits for the process and reports a failure when it dies with media loaded.
func (m *MPV) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	m.mu.Lock()
	sink := m.sink
	disposing := m.disposing
	m.sink = nil
	m.mu.Unlock()

	if disposing {
		return
	}

	log.Warnf("mpv exited: %v", err)
	if sink != nil {
		sink(Signal{Kind: SignalFailed, Err: ErrProcessExited})
	}
}

func waitForSocket(socketPath string, exited <-chan struct{}) error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-exited:
			return errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socketPath, socketWaitRetries)
}

// onEvent translates an mpv broadcast into a Signal for the current media.
func (m *MPV) onEvent(ev mpvEvent) {
	m.mu.Lock()
	sink, uri := m.sink, m.uri
	m.mu.Unlock()

	if sink == nil {
		return
	}

	switch ev.Event {
	case "file-loaded":
		// A reply to an earlier loadfile can arrive after the media was replaced.
		if path, err := m.sendCommand("get_property", "path"); err == nil && path != uri {
			return
		}
		width, _ := m.float("width")
		height, _ := m.float("height")
		sink(Signal{
			Kind:     SignalReady,
			Duration: m.Duration(),
			Width:    int(width),
			Height:   int(height),
		})
	case "end-file":
		if ev.Reason == "error" {
			reason := ev.FileError
			if reason == "" {
				reason = "unknown error"
			}
			sink(Signal{Kind: SignalFailed, Err: errors.New(reason)})
		}
	case "playback-restart":
		sink(Signal{Kind: SignalSeeked})
	case "property-change":
		value, _ := ev.Data.(bool)
		switch ev.Name {
		case "paused-for-cache":
			sink(Signal{Kind: SignalStall, Buffering: value})
		case "eof-reached":
			if value {
				sink(Signal{Kind: SignalEnded})
			}
		}
	}
}

func (m *MPV) set(property string, value any) error {
	m.mu.Lock()
	switch property {
	case "mute", "volume", "speed":
		m.sticky[property] = value
	}
	running := m.runningLocked()
	m.mu.Unlock()

	if !running {
		return nil
	}

	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) float(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

func (m *MPV) floatOrNaN(name string) float64 {
	val, err := m.float(name)
	if err != nil {
		if !errors.Is(err, errPropertyUnavailable) {
			log.Tracef("mpv %s: %v", name, err)
		}
		return math.NaN()
	}
	return val
}
