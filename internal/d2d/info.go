package d2d

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// Info/value types are read-only projections of server-side state, exchanged
// by identity. Each nests into a parent message as one bytes field carrying
// its own TLV space.

var ErrInvalidSubject = errors.New("d2d: invalid subject")

// MemberInfo identifies a network peer.
type MemberInfo struct {
	ID      string
	Nick    string
	Address string
}

// AccountInfo identifies a user account.
type AccountInfo struct {
	ID          string
	Username    string
	DisplayName string
}

// FolderInfo identifies a shared folder.
type FolderInfo struct {
	ID   string
	Name string
}

// GroupInfo identifies a group, optionally scoped to an organization.
type GroupInfo struct {
	ID             string
	Name           string
	OrganizationID string
}

// ShareLinkInfo identifies a share link for a folder.
type ShareLinkInfo struct {
	ID        string
	FolderID  string
	URL       string
	ExpiresMS uint64
}

const (
	memberFieldID      uint16 = 1
	memberFieldNick    uint16 = 2
	memberFieldAddress uint16 = 3

	accountFieldID          uint16 = 1
	accountFieldUsername    uint16 = 2
	accountFieldDisplayName uint16 = 3

	folderFieldID   uint16 = 1
	folderFieldName uint16 = 2

	groupFieldID    uint16 = 1
	groupFieldName  uint16 = 2
	groupFieldOrgID uint16 = 3

	linkFieldID        uint16 = 1
	linkFieldFolderID  uint16 = 2
	linkFieldURL       uint16 = 3
	linkFieldExpiresMS uint16 = 4
)

func MarshalMemberInfo(mi MemberInfo) []byte {
	fields := []tlv.Field{tlv.NewString(memberFieldID, mi.ID)}
	if mi.Nick != "" {
		fields = append(fields, tlv.NewString(memberFieldNick, mi.Nick))
	}
	if mi.Address != "" {
		fields = append(fields, tlv.NewString(memberFieldAddress, mi.Address))
	}
	return tlv.Encode(fields)
}

func UnmarshalMemberInfo(b []byte) (MemberInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return MemberInfo{}, err
	}
	return MemberInfo{
		ID:      stringField(fields, memberFieldID),
		Nick:    stringField(fields, memberFieldNick),
		Address: stringField(fields, memberFieldAddress),
	}, nil
}

func MarshalAccountInfo(ai AccountInfo) []byte {
	fields := []tlv.Field{tlv.NewString(accountFieldID, ai.ID)}
	if ai.Username != "" {
		fields = append(fields, tlv.NewString(accountFieldUsername, ai.Username))
	}
	if ai.DisplayName != "" {
		fields = append(fields, tlv.NewString(accountFieldDisplayName, ai.DisplayName))
	}
	return tlv.Encode(fields)
}

func UnmarshalAccountInfo(b []byte) (AccountInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{
		ID:          stringField(fields, accountFieldID),
		Username:    stringField(fields, accountFieldUsername),
		DisplayName: stringField(fields, accountFieldDisplayName),
	}, nil
}

func MarshalFolderInfo(fi FolderInfo) []byte {
	fields := []tlv.Field{tlv.NewString(folderFieldID, fi.ID)}
	if fi.Name != "" {
		fields = append(fields, tlv.NewString(folderFieldName, fi.Name))
	}
	return tlv.Encode(fields)
}

func UnmarshalFolderInfo(b []byte) (FolderInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return FolderInfo{}, err
	}
	return FolderInfo{
		ID:   stringField(fields, folderFieldID),
		Name: stringField(fields, folderFieldName),
	}, nil
}

func MarshalGroupInfo(gi GroupInfo) []byte {
	fields := []tlv.Field{tlv.NewString(groupFieldID, gi.ID)}
	if gi.Name != "" {
		fields = append(fields, tlv.NewString(groupFieldName, gi.Name))
	}
	if gi.OrganizationID != "" {
		fields = append(fields, tlv.NewString(groupFieldOrgID, gi.OrganizationID))
	}
	return tlv.Encode(fields)
}

func UnmarshalGroupInfo(b []byte) (GroupInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return GroupInfo{}, err
	}
	return GroupInfo{
		ID:             stringField(fields, groupFieldID),
		Name:           stringField(fields, groupFieldName),
		OrganizationID: stringField(fields, groupFieldOrgID),
	}, nil
}

func MarshalShareLinkInfo(li ShareLinkInfo) []byte {
	fields := []tlv.Field{
		tlv.NewString(linkFieldID, li.ID),
		tlv.NewString(linkFieldFolderID, li.FolderID),
	}
	if li.URL != "" {
		fields = append(fields, tlv.NewString(linkFieldURL, li.URL))
	}
	if li.ExpiresMS != 0 {
		fields = append(fields, tlv.NewUint64(linkFieldExpiresMS, li.ExpiresMS))
	}
	return tlv.Encode(fields)
}

func UnmarshalShareLinkInfo(b []byte) (ShareLinkInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return ShareLinkInfo{}, err
	}
	li := ShareLinkInfo{
		ID:       stringField(fields, linkFieldID),
		FolderID: stringField(fields, linkFieldFolderID),
		URL:      stringField(fields, linkFieldURL),
	}
	if f, ok := tlv.Get(fields, linkFieldExpiresMS); ok {
		if v, err := f.Uint64(); err == nil {
			li.ExpiresMS = v
		}
	}
	return li, nil
}

// Subject is the account or group a permission is granted to or invited
// for. The set is closed: only AccountInfo and GroupInfo implement it.
type Subject interface {
	SubjectID() string
	subjectTag() byte
}

const (
	subjectTagAccount byte = 1
	subjectTagGroup   byte = 2
)

func (ai AccountInfo) SubjectID() string { return ai.ID }
func (ai AccountInfo) subjectTag() byte  { return subjectTagAccount }

func (gi GroupInfo) SubjectID() string { return gi.ID }
func (gi GroupInfo) subjectTag() byte  { return subjectTagGroup }

// MarshalSubject encodes a subject as its embedded type tag followed by the
// subject's own TLV bytes.
func MarshalSubject(s Subject) []byte {
	var body []byte
	switch v := s.(type) {
	case AccountInfo:
		body = MarshalAccountInfo(v)
	case GroupInfo:
		body = MarshalGroupInfo(v)
	default:
		return nil
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, s.subjectTag())
	return append(out, body...)
}

// UnmarshalSubject reads the embedded tag, selects the matching reader, and
// attempts the structural decode.
func UnmarshalSubject(b []byte) (Subject, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSubject)
	}
	tag, body := b[0], b[1:]
	switch tag {
	case subjectTagAccount:
		ai, err := UnmarshalAccountInfo(body)
		if err != nil {
			return nil, fmt.Errorf("%w: account: %v", ErrInvalidSubject, err)
		}
		if strings.TrimSpace(ai.ID) == "" {
			return nil, fmt.Errorf("%w: account missing id", ErrInvalidSubject)
		}
		return ai, nil
	case subjectTagGroup:
		gi, err := UnmarshalGroupInfo(body)
		if err != nil {
			return nil, fmt.Errorf("%w: group: %v", ErrInvalidSubject, err)
		}
		if strings.TrimSpace(gi.ID) == "" {
			return nil, fmt.Errorf("%w: group missing id", ErrInvalidSubject)
		}
		return gi, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrInvalidSubject, tag)
	}
}

func stringField(fields []tlv.Field, id uint16) string {
	f, ok := tlv.Get(fields, id)
	if !ok {
		return ""
	}
	v, _ := f.String()
	return v
}
