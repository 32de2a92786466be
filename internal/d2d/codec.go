package d2d

import (
	"errors"
	"fmt"

	"github.com/foldlink/foldlink/internal/wire"
	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// ErrUnhandled marks an envelope whose discriminator is not in the registry.
// Callers can tell "not a message we decode" apart from "decoded empty";
// it never aborts the connection.
var ErrUnhandled = errors.New("d2d: unhandled message type")

// Factory builds an empty instance of one concrete message type.
type Factory func() Message

// Registry maps wire discriminators to message factories. It is built once
// at startup and read-only afterwards, so it is shared without locking.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// MustRegister installs a factory. A duplicate discriminator is a codec
// table misconfiguration and fatal at startup.
func (r *Registry) MustRegister(f Factory) {
	name := f().WireName()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("d2d: duplicate decoder for %q", name))
	}
	r.factories[name] = f
}

// Known reports whether the registry decodes the given discriminator.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Decode turns an envelope into its concrete message. An unknown
// discriminator yields ErrUnhandled, never a panic. A malformed top-level
// payload is a decode error; malformed nested values inside a known message
// are dropped by the message's own ApplyFields (best-effort decode).
func (r *Registry) Decode(env wire.Envelope) (Message, error) {
	factory, ok := r.factories[env.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnhandled, env.Name)
	}
	fields, err := tlv.Decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("d2d: decode %s: %w", env.Name, err)
	}
	msg := factory()
	if err := msg.ApplyFields(fields); err != nil {
		return nil, fmt.Errorf("d2d: decode %s: %w", env.Name, err)
	}
	return msg, nil
}

// Encode serializes a message into an envelope, stamping the discriminator
// with the message's wire name so a peer can diagnose unexpected types
// without parsing the payload.
func Encode(msg Message) (wire.Envelope, error) {
	fields, err := msg.Fields()
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("d2d: encode %s: %w", msg.WireName(), err)
	}
	env := wire.Envelope{
		Name:    msg.WireName(),
		Payload: tlv.Encode(fields),
	}
	switch m := msg.(type) {
	case Reply:
		env.Flags |= wire.FlagIsResponse
		if !m.Status().OK() {
			env.Flags |= wire.FlagIsError
		}
	case Notification:
		env.Flags |= wire.FlagIsNotify
	}
	return env, nil
}

// DefaultRegistry returns a registry holding the full message catalogue.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(func() Message { return &LoginRequest{} })
	r.MustRegister(func() Message { return &LoginReply{} })
	r.MustRegister(func() Message { return &AccountInfoRequest{} })
	r.MustRegister(func() Message { return &AccountInfoReply{} })
	r.MustRegister(func() Message { return &FolderCreateRequest{} })
	r.MustRegister(func() Message { return &FolderCreateReply{} })
	r.MustRegister(func() Message { return &FolderRemoveRequest{} })
	r.MustRegister(func() Message { return &FolderRemoveReply{} })
	r.MustRegister(func() Message { return &FolderListRequest{} })
	r.MustRegister(func() Message { return &FolderListReply{} })
	r.MustRegister(func() Message { return &PermissionListRequest{} })
	r.MustRegister(func() Message { return &PermissionListReply{} })
	r.MustRegister(func() Message { return &PermissionChangeRequest{} })
	r.MustRegister(func() Message { return &PermissionChangeReply{} })
	r.MustRegister(func() Message { return &ShareLinkCreateRequest{} })
	r.MustRegister(func() Message { return &ShareLinkCreateReply{} })
	r.MustRegister(func() Message { return &Ping{} })
	r.MustRegister(func() Message { return &Pong{} })
	return r
}
