package d2d

import "github.com/foldlink/foldlink/internal/wire/tlv"

// Ping is a fire-and-forget keepalive. It carries no correlation code; a
// peer answers with a Pong echoing the text, also uncorrelated.
type Ping struct {
	Text string
}

func (m *Ping) WireName() string { return "Ping" }
func (m *Ping) notification()    {}

func (m *Ping) Fields() ([]tlv.Field, error) {
	if m.Text == "" {
		return nil, nil
	}
	return []tlv.Field{tlv.NewString(FieldPingText, m.Text)}, nil
}

func (m *Ping) ApplyFields(fields []tlv.Field) error {
	m.Text = stringField(fields, FieldPingText)
	return nil
}

// Pong answers a Ping.
type Pong struct {
	Text string
}

func (m *Pong) WireName() string { return "Pong" }
func (m *Pong) notification()    {}

func (m *Pong) Fields() ([]tlv.Field, error) {
	if m.Text == "" {
		return nil, nil
	}
	return []tlv.Field{tlv.NewString(FieldPingText, m.Text)}, nil
}

func (m *Pong) ApplyFields(fields []tlv.Field) error {
	m.Text = stringField(fields, FieldPingText)
	return nil
}
