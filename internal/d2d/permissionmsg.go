package d2d

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// PermissionListRequest fetches the permission envelopes scoped to one
// resource (folder, group or organization id).
type PermissionListRequest struct {
	RequestBase
	ScopeID string
}

func (m *PermissionListRequest) WireName() string     { return "PermissionListRequest" }
func (m *PermissionListRequest) NodeEvent() NodeEvent { return EventPermissionList }

func (m *PermissionListRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.ScopeID != "" {
		fields = append(fields, tlv.NewString(FieldScopeID, m.ScopeID))
	}
	return fields, nil
}

func (m *PermissionListRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.ScopeID = stringField(fields, FieldScopeID)
	return nil
}

func (m *PermissionListRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if strings.TrimSpace(m.ScopeID) == "" {
		return ValidationError{WireName: m.WireName(), Field: "scope_id", Reason: "missing"}
	}
	return nil
}

// PermissionListReply carries one permission envelope per (type, invitation)
// bucket, as repeated permission_info fields.
type PermissionListReply struct {
	ReplyBase
	Infos []PermissionInfo
}

func (m *PermissionListReply) WireName() string { return "PermissionListReply" }

func (m *PermissionListReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	for _, pi := range m.Infos {
		fields = append(fields, tlv.NewBytes(FieldPermissionInfo, MarshalPermissionInfo(pi)))
	}
	return fields, nil
}

func (m *PermissionListReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	for _, f := range tlv.GetAll(fields, FieldPermissionInfo) {
		pi, err := UnmarshalPermissionInfo(f.Value)
		if err != nil {
			log.Debug().Err(err).Str("message", m.WireName()).Msg("d2d: permission info undecodable")
			continue
		}
		if pi.Permission == nil && len(pi.Subjects) == 0 {
			// envelope from a newer protocol version, nothing usable
			continue
		}
		m.Infos = append(m.Infos, pi)
	}
	return nil
}

// PermissionChangeRequest grants, revokes or invites a single subject. A
// request-side envelope carries at most one subject.
type PermissionChangeRequest struct {
	RequestBase
	ScopeID string
	Info    *PermissionInfo
}

func (m *PermissionChangeRequest) WireName() string     { return "PermissionChangeRequest" }
func (m *PermissionChangeRequest) NodeEvent() NodeEvent { return EventPermissionChange }

func (m *PermissionChangeRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.ScopeID != "" {
		fields = append(fields, tlv.NewString(FieldScopeID, m.ScopeID))
	}
	if m.Info != nil {
		fields = append(fields, tlv.NewBytes(FieldPermissionInfo, MarshalPermissionInfo(*m.Info)))
	}
	return fields, nil
}

func (m *PermissionChangeRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.ScopeID = stringField(fields, FieldScopeID)
	if f, ok := tlv.Get(fields, FieldPermissionInfo); ok {
		pi, err := UnmarshalPermissionInfo(f.Value)
		if err != nil {
			log.Debug().Err(err).Str("message", m.WireName()).Msg("d2d: permission info undecodable")
			return nil
		}
		m.Info = &pi
	}
	return nil
}

func (m *PermissionChangeRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if strings.TrimSpace(m.ScopeID) == "" {
		return ValidationError{WireName: m.WireName(), Field: "scope_id", Reason: "missing"}
	}
	if m.Info == nil {
		return ValidationError{WireName: m.WireName(), Field: "permission_info", Reason: "missing"}
	}
	if m.Info.Permission == nil {
		return ValidationError{WireName: m.WireName(), Field: "permission_info.type", Reason: "unrecognized"}
	}
	if len(m.Info.Subjects) > 1 {
		return ValidationError{WireName: m.WireName(), Field: "permission_info.subjects", Reason: "at most one subject"}
	}
	return nil
}

// PermissionChangeReply is payload-less; the status code is the outcome.
type PermissionChangeReply struct {
	ReplyBase
}

func (m *PermissionChangeReply) WireName() string { return "PermissionChangeReply" }

func (m *PermissionChangeReply) Fields() ([]tlv.Field, error) {
	return m.baseFields(), nil
}

func (m *PermissionChangeReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	return nil
}
