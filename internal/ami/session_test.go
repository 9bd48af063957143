package ami_test

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"

	"callboard/internal/ami"
	"callboard/internal/config"
	"callboard/internal/pbx"
)

// managerConn drives one scripted AMI session on a loopback listener.
type managerConn struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func startFakeManager(t *testing.T, script func(*managerConn)) config.AMIConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		mc := &managerConn{t: t, conn: conn, reader: bufio.NewReader(conn)}
		mc.send("Asterisk Call Manager/5.0")
		script(mc)
		// Drain whatever the client still writes (logoff), then close.
		io.Copy(io.Discard, conn)
		conn.Close()
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return config.AMIConfig{
		Host:          "127.0.0.1",
		Port:          addr.Port,
		Username:      "monitor",
		Secret:        "s3cret",
		ActionTimeout: 1,
	}
}

// readFrame reads one action frame and returns its fields.
func (m *managerConn) readFrame() map[string]string {
	fields := make(map[string]string)
	for {
		line, err := m.reader.ReadString('\n')
		if err != nil {
			return fields
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return fields
		}
		if k, v, ok := strings.Cut(line, ": "); ok {
			fields[k] = v
		}
	}
}

// send writes lines terminated by a blank line.
func (m *managerConn) send(lines ...string) {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	m.conn.Write([]byte(b.String()))
}

func (m *managerConn) acceptLogin() {
	login := m.readFrame()
	if login["Action"] != "Login" {
		m.t.Errorf("expected Login action, got %v", login)
	}
	if login["Username"] != "monitor" || login["Secret"] != "s3cret" {
		m.t.Errorf("unexpected credentials: %v", login)
	}
	m.send("Response: Success", "ActionID: "+login["ActionID"], "Message: Authentication accepted")
}

func TestRunBulkCommandCollectsUntilComplete(t *testing.T) {
	cfg := startFakeManager(t, func(m *managerConn) {
		m.acceptLogin()

		action := m.readFrame()
		if action["Action"] != "QueueStatus" {
			t.Errorf("expected QueueStatus action, got %v", action)
		}
		id := action["ActionID"]
		m.send("Response: Success", "ActionID: "+id, "EventList: start")
		m.send("Event: QueueParams", "ActionID: "+id, "Queue: support", "Strategy: ringall")
		m.send("Event: QueueMember", "ActionID: "+id, "Queue: support") // not requested
		m.send("Event: QueueParams", "ActionID: "+id, "Queue: sales", "Strategy: leastrecent")
		m.send("Event: QueueStatusComplete", "ActionID: "+id, "EventList: Complete")
	})

	events, err := ami.NewClient(cfg).RunBulkCommand("QueueStatus", []string{"QueueParams"}, "QueueStatusComplete")
	if err != nil {
		t.Fatalf("RunBulkCommand: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Get("Queue") != "support" || events[1].Get("Queue") != "sales" {
		t.Errorf("unexpected events: %v", events)
	}
}

func TestRunBulkCommandIgnoresForeignActionIDs(t *testing.T) {
	cfg := startFakeManager(t, func(m *managerConn) {
		m.acceptLogin()
		action := m.readFrame()
		id := action["ActionID"]
		m.send("Response: Success", "ActionID: "+id)
		m.send("Event: EndpointList", "ActionID: other-session", "ObjectName: 9999")
		m.send("Event: EndpointList", "ActionID: "+id, "ObjectName: 1001")
		m.send("Event: EndpointListComplete", "ActionID: "+id)
	})

	events, err := ami.NewClient(cfg).RunBulkCommand("PJSIPShowEndpoints", []string{"EndpointList"}, "EndpointListComplete")
	if err != nil {
		t.Fatalf("RunBulkCommand: %v", err)
	}
	if len(events) != 1 || events[0].Get("ObjectName") != "1001" {
		t.Errorf("expected only own-session event, got %v", events)
	}
}

func TestRunBulkCommandAuthFailure(t *testing.T) {
	cfg := startFakeManager(t, func(m *managerConn) {
		login := m.readFrame()
		m.send("Response: Error", "ActionID: "+login["ActionID"], "Message: Authentication failed")
	})

	_, err := ami.NewClient(cfg).RunBulkCommand("QueueStatus", []string{"QueueParams"}, "QueueStatusComplete")
	if pbx.KindOf(err) != pbx.KindAuth {
		t.Errorf("expected auth kind, got %v", err)
	}
}

func TestRunBulkCommandActionRejected(t *testing.T) {
	cfg := startFakeManager(t, func(m *managerConn) {
		m.acceptLogin()
		action := m.readFrame()
		m.send("Response: Error", "ActionID: "+action["ActionID"], "Message: Permission denied")
	})

	_, err := ami.NewClient(cfg).RunBulkCommand("QueueStatus", []string{"QueueParams"}, "QueueStatusComplete")
	if pbx.KindOf(err) != pbx.KindProtocol {
		t.Errorf("expected protocol kind, got %v", err)
	}
}

func TestRunBulkCommandTimeoutDiscardsBuffer(t *testing.T) {
	cfg := startFakeManager(t, func(m *managerConn) {
		m.acceptLogin()
		action := m.readFrame()
		id := action["ActionID"]
		m.send("Response: Success", "ActionID: "+id)
		// Deliver part of the listing, then never complete.
		m.send("Event: QueueParams", "ActionID: "+id, "Queue: support")
	})

	events, err := ami.NewClient(cfg).RunBulkCommand("QueueStatus", []string{"QueueParams"}, "QueueStatusComplete")
	if !pbx.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if events != nil {
		t.Errorf("partial buffer must be discarded, got %v", events)
	}
}

func TestRunBulkCommandConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // port is now dead

	cfg := config.AMIConfig{Host: "127.0.0.1", Port: addr.Port, Username: "monitor", ActionTimeout: 1}
	_, err = ami.NewClient(cfg).RunBulkCommand("QueueStatus", []string{"QueueParams"}, "QueueStatusComplete")
	if pbx.KindOf(err) != pbx.KindConnection {
		t.Errorf("expected connection kind, got %v", err)
	}
}
