package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV answers JSON-IPC commands from a property table, prefixing every reply with a broadcast event.
type fakeMPV struct {
	listener net.Listener
	mu       sync.Mutex
	props    map[string]any
	commands [][]any
}

func newFakeMPV(t *testing.T, props map[string]any) *fakeMPV {
	dir, err := os.MkdirTemp("", "mpv")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	l, err := net.Listen("unix", filepath.Join(dir, "ipc.sock"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	f := &fakeMPV{listener: l, props: props}
	go f.serve()
	return f
}

func (f *fakeMPV) path() string {
	return f.listener.Addr().String()
}

func (f *fakeMPV) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			return
		}

		f.mu.Lock()
		f.commands = append(f.commands, cmd.Command)
		reply := map[string]any{"request_id": cmd.RequestID, "error": "success"}
		if cmd.Command[0] == "get_property" {
			if v, ok := f.props[cmd.Command[1].(string)]; ok {
				reply["data"] = v
			} else {
				reply["error"] = "property unavailable"
			}
		}
		f.mu.Unlock()

		_, _ = fmt.Fprintln(conn, `{"event":"audio-reconfig"}`)
		payload, _ := json.Marshal(reply)
		_, _ = conn.Write(append(payload, '\n'))
	}
}

func (f *fakeMPV) sent() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.commands...)
}

func TestIPC(t *testing.T) {
	Convey("Given an mpv IPC socket", t, func() {
		fake := newFakeMPV(t, map[string]any{"time-pos": 4.5})

		Convey("Replies should be matched past broadcast events", func() {
			data, err := doSendCommand(fake.path(), []any{"get_property", "time-pos"})
			So(err, ShouldBeNil)
			So(data, ShouldEqual, 4.5)
		})

		Convey("mpv errors should not be retried", func() {
			m := NewMPV("")
			m.socketPath = fake.path()

			_, err := m.sendCommand("get_property", "duration")
			So(errors.Is(err, errPropertyUnavailable), ShouldBeTrue)
			So(fake.sent(), ShouldHaveLength, 1)

			Convey("and read as unknown values", func() {
				So(math.IsNaN(m.Duration()), ShouldBeTrue)
			})
		})

		Convey("A missing socket should fail to connect", func() {
			_, err := doSendCommand(filepath.Join(os.TempDir(), "nope.sock"), []any{"stop"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOnEvent(t *testing.T) {
	Convey("Given an MPV decoder with loaded media", t, func() {
		fake := newFakeMPV(t, map[string]any{
			"path":     "https://cdn.example.com/clip.mp4",
			"duration": 12.5,
			"width":    1280.0,
			"height":   720.0,
		})

		m := NewMPV("")
		m.socketPath = fake.path()

		var signals []Signal
		m.sink = func(s Signal) { signals = append(signals, s) }
		m.uri = "https://cdn.example.com/clip.mp4"

		Convey("file-loaded should become Ready with media metadata", func() {
			m.onEvent(mpvEvent{Event: "file-loaded"})
			So(signals, ShouldHaveLength, 1)
			So(signals[0].Kind, ShouldEqual, SignalReady)
			So(signals[0].Duration, ShouldEqual, 12.5)
			So(signals[0].Width, ShouldEqual, 1280)
			So(signals[0].Height, ShouldEqual, 720)
		})

		Convey("file-loaded for replaced media should be ignored", func() {
			m.uri = "https://cdn.example.com/other.mp4"
			m.onEvent(mpvEvent{Event: "file-loaded"})
			So(signals, ShouldBeEmpty)
		})

		Convey("end-file with an error should become Failed", func() {
			m.onEvent(mpvEvent{Event: "end-file", Reason: "error", FileError: "loading failed"})
			m.onEvent(mpvEvent{Event: "end-file", Reason: "stop"})
			So(signals, ShouldHaveLength, 1)
			So(signals[0].Kind, ShouldEqual, SignalFailed)
			So(signals[0].Err.Error(), ShouldEqual, "loading failed")
		})

		Convey("Property changes should map to stall and end signals", func() {
			m.onEvent(mpvEvent{Event: "property-change", Name: "paused-for-cache", Data: true})
			m.onEvent(mpvEvent{Event: "property-change", Name: "eof-reached", Data: false})
			m.onEvent(mpvEvent{Event: "property-change", Name: "eof-reached", Data: true})
			m.onEvent(mpvEvent{Event: "playback-restart"})

			So(signals, ShouldHaveLength, 3)
			So(signals[0], ShouldResemble, Signal{Kind: SignalStall, Buffering: true})
			So(signals[1].Kind, ShouldEqual, SignalEnded)
			So(signals[2].Kind, ShouldEqual, SignalSeeked)
		})

		Convey("Events after Close should be dropped", func() {
			So(m.Close(), ShouldBeNil)
			m.onEvent(mpvEvent{Event: "playback-restart"})
			So(signals, ShouldBeEmpty)
		})
	})
}

func TestStickySettings(t *testing.T) {
	Convey("Given an MPV decoder that has not started", t, func() {
		m := NewMPV("")

		Convey("Settings should be kept for the process", func() {
			So(m.SetMuted(true), ShouldBeNil)
			So(m.SetVolume(0.5), ShouldBeNil)
			So(m.SetRate(2), ShouldBeNil)
			So(m.Pause(), ShouldBeNil)

			So(m.sticky, ShouldResemble, map[string]any{"mute": true, "volume": 50.0, "speed": 2.0})
		})

		Convey("Close and Dispose should be no-ops", func() {
			So(m.Close(), ShouldBeNil)
			So(m.Dispose(), ShouldBeNil)
			So(m.Open("clip.mp4", func(Signal) {}), ShouldNotBeNil)
		})
	})
}
