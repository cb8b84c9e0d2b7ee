package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/bmevideo/bmevideo/log"
)

// mpvEvent is a broadcast line from mpv: a named event or an observed property change.
type mpvEvent struct {
	Event     string `json:"event"`
	Name      string `json:"name"`
	Data      any    `json:"data"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// observed lists the properties mpv pushes changes for.
var observed = []string{
	"paused-for-cache",
	"eof-reached",
}

// eventListener reads mpv's event stream over a dedicated connection.
type eventListener struct {
	conn     net.Conn
	handle   func(mpvEvent)
	stopOnce sync.Once
	done     chan struct{}
}

// listen subscribes to the observed properties and starts the read loop.
func listen(socketPath string, handle func(mpvEvent)) (*eventListener, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("event listener connect: %w", err)
	}

	enc := json.NewEncoder(conn)
	for i, name := range observed {
		cmd := ipcCommand{Command: []any{"observe_property", i + 1, name}, RequestID: requestIDs.Add(1)}
		if err := enc.Encode(cmd); err != nil {
			conn.Close()
			return nil, fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el := &eventListener{
		conn:   conn,
		handle: handle,
		done:   make(chan struct{}),
	}
	go el.readLoop()

	log.Debugf("mpv event listener started on %s", socketPath)
	return el, nil
}

// stop closes the connection, which unblocks the read loop, and waits for it to exit.
func (el *eventListener) stop() {
	el.stopOnce.Do(func() {
		_ = el.conn.Close()
	})
	<-el.done
}

func (el *eventListener) readLoop() {
	defer close(el.done)

	scanner := bufio.NewScanner(el.conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		var ev mpvEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil || ev.Event == "" {
			continue
		}
		el.handle(ev)
	}

	if err := scanner.Err(); err != nil {
		log.Debugf("mpv event listener stopped: %v", err)
	}
}
