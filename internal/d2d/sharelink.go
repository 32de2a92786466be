package d2d

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// ShareLinkCreateRequest creates a share link for a folder, optionally with
// an expiry timestamp in unix milliseconds.
type ShareLinkCreateRequest struct {
	RequestBase
	FolderID  string
	ExpiresMS uint64
}

func (m *ShareLinkCreateRequest) WireName() string     { return "ShareLinkCreateRequest" }
func (m *ShareLinkCreateRequest) NodeEvent() NodeEvent { return EventShareLinkCreate }

func (m *ShareLinkCreateRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.FolderID != "" {
		fields = append(fields, tlv.NewString(FieldFolderID, m.FolderID))
	}
	if m.ExpiresMS != 0 {
		fields = append(fields, tlv.NewUint64(FieldExpiresMS, m.ExpiresMS))
	}
	return fields, nil
}

func (m *ShareLinkCreateRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.FolderID = stringField(fields, FieldFolderID)
	if f, ok := tlv.Get(fields, FieldExpiresMS); ok {
		if v, err := f.Uint64(); err == nil {
			m.ExpiresMS = v
		}
	}
	return nil
}

func (m *ShareLinkCreateRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if strings.TrimSpace(m.FolderID) == "" {
		return ValidationError{WireName: m.WireName(), Field: "folder_id", Reason: "missing"}
	}
	return nil
}

// ShareLinkCreateReply carries the created link on success.
type ShareLinkCreateReply struct {
	ReplyBase
	Link *ShareLinkInfo
}

func (m *ShareLinkCreateReply) WireName() string { return "ShareLinkCreateReply" }

func (m *ShareLinkCreateReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Link != nil {
		fields = append(fields, tlv.NewBytes(FieldShareLinkInfo, MarshalShareLinkInfo(*m.Link)))
	}
	return fields, nil
}

func (m *ShareLinkCreateReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	if f, ok := tlv.Get(fields, FieldShareLinkInfo); ok {
		li, err := UnmarshalShareLinkInfo(f.Value)
		if err != nil {
			log.Debug().Err(err).Str("message", m.WireName()).Msg("d2d: share link info undecodable")
			return nil
		}
		m.Link = &li
	}
	return nil
}
