package session

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Hello{NodeID: "node-a", Nick: "alice", ProtocolVersion: 1}
	if err := WriteHello(&buf, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadHello(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestHelloAckRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := HelloAck{Status: AckStatusRejected, Code: 1, Message: "nope", NodeID: "srv", TimestampMS: 42}
	if err := WriteHelloAck(&buf, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadHelloAck(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestWriteHelloRejectsMissingNodeID(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHello(&buf, Hello{ProtocolVersion: 1})
	if !errors.Is(err, ErrInvalidHello) {
		t.Fatalf("expected ErrInvalidHello, got %v", err)
	}
}

func TestReadHelloRejectsWrongControlType(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHelloAck(&buf, HelloAck{Status: AckStatusAccepted, NodeID: "srv", TimestampMS: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadHello(bufio.NewReader(&buf)); !errors.Is(err, ErrInvalidHello) {
		t.Fatalf("expected ErrInvalidHello, got %v", err)
	}
}

func TestReadHelloRejectsGarbage(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("not json\n"))
	if _, err := ReadHello(r); err == nil {
		t.Fatalf("expected error for garbage line")
	}
}
