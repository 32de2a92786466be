package d2d

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// FolderCreateRequest asks the server to create a shared folder.
type FolderCreateRequest struct {
	RequestBase
	Folder *FolderInfo
}

func (m *FolderCreateRequest) WireName() string     { return "FolderCreateRequest" }
func (m *FolderCreateRequest) NodeEvent() NodeEvent { return EventFolderCreate }

func (m *FolderCreateRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Folder != nil {
		fields = append(fields, tlv.NewBytes(FieldFolderInfo, MarshalFolderInfo(*m.Folder)))
	}
	return fields, nil
}

func (m *FolderCreateRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.Folder = folderInfoField(fields, m.WireName())
	return nil
}

func (m *FolderCreateRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if m.Folder == nil {
		return ValidationError{WireName: m.WireName(), Field: "folder_info", Reason: "missing"}
	}
	if strings.TrimSpace(m.Folder.ID) == "" {
		return ValidationError{WireName: m.WireName(), Field: "folder_info.id", Reason: "missing"}
	}
	return nil
}

// FolderCreateReply echoes the created folder.
type FolderCreateReply struct {
	ReplyBase
	Folder *FolderInfo
}

func (m *FolderCreateReply) WireName() string { return "FolderCreateReply" }

func (m *FolderCreateReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.Folder != nil {
		fields = append(fields, tlv.NewBytes(FieldFolderInfo, MarshalFolderInfo(*m.Folder)))
	}
	return fields, nil
}

func (m *FolderCreateReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.Folder = folderInfoField(fields, m.WireName())
	return nil
}

// FolderRemoveRequest removes a folder by id.
type FolderRemoveRequest struct {
	RequestBase
	FolderID string
}

func (m *FolderRemoveRequest) WireName() string     { return "FolderRemoveRequest" }
func (m *FolderRemoveRequest) NodeEvent() NodeEvent { return EventFolderRemove }

func (m *FolderRemoveRequest) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	if m.FolderID != "" {
		fields = append(fields, tlv.NewString(FieldFolderID, m.FolderID))
	}
	return fields, nil
}

func (m *FolderRemoveRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	m.FolderID = stringField(fields, FieldFolderID)
	return nil
}

func (m *FolderRemoveRequest) Validate() error {
	if err := m.validateBase(m.WireName()); err != nil {
		return err
	}
	if strings.TrimSpace(m.FolderID) == "" {
		return ValidationError{WireName: m.WireName(), Field: "folder_id", Reason: "missing"}
	}
	return nil
}

// FolderRemoveReply is payload-less; the status code is the outcome.
type FolderRemoveReply struct {
	ReplyBase
}

func (m *FolderRemoveReply) WireName() string { return "FolderRemoveReply" }

func (m *FolderRemoveReply) Fields() ([]tlv.Field, error) {
	return m.baseFields(), nil
}

func (m *FolderRemoveReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	return nil
}

// FolderListRequest lists the folders visible to the caller.
type FolderListRequest struct {
	RequestBase
}

func (m *FolderListRequest) WireName() string     { return "FolderListRequest" }
func (m *FolderListRequest) NodeEvent() NodeEvent { return EventFolderList }

func (m *FolderListRequest) Fields() ([]tlv.Field, error) {
	return m.baseFields(), nil
}

func (m *FolderListRequest) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	return nil
}

func (m *FolderListRequest) Validate() error {
	return m.validateBase(m.WireName())
}

// FolderListReply carries zero or more folder projections as repeated
// folder_info fields.
type FolderListReply struct {
	ReplyBase
	Folders []FolderInfo
}

func (m *FolderListReply) WireName() string { return "FolderListReply" }

func (m *FolderListReply) Fields() ([]tlv.Field, error) {
	fields := m.baseFields()
	for _, fi := range m.Folders {
		fields = append(fields, tlv.NewBytes(FieldFolderInfo, MarshalFolderInfo(fi)))
	}
	return fields, nil
}

func (m *FolderListReply) ApplyFields(fields []tlv.Field) error {
	m.applyBase(fields)
	for _, f := range tlv.GetAll(fields, FieldFolderInfo) {
		fi, err := UnmarshalFolderInfo(f.Value)
		if err != nil {
			log.Debug().Err(err).Str("message", m.WireName()).Msg("d2d: folder info undecodable")
			continue
		}
		m.Folders = append(m.Folders, fi)
	}
	return nil
}

func folderInfoField(fields []tlv.Field, wireName string) *FolderInfo {
	f, ok := tlv.Get(fields, FieldFolderInfo)
	if !ok {
		return nil
	}
	fi, err := UnmarshalFolderInfo(f.Value)
	if err != nil {
		log.Debug().Err(err).Str("message", wireName).Msg("d2d: folder info undecodable")
		return nil
	}
	return &fi
}
