package d2d

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/wire/tlv"
)

// PermissionType discriminates the closed set of permission variants on the
// wire. Zero is reserved for unrecognized values so that envelopes written by
// a newer protocol version decode to "no permission" instead of failing.
type PermissionType uint32

const (
	PermissionTypeUnrecognized PermissionType = 0

	PermissionTypeAdmin              PermissionType = 1
	PermissionTypeChangePreferences  PermissionType = 2
	PermissionTypeChangeTransferMode PermissionType = 3
	PermissionTypeComputersApp       PermissionType = 4
	PermissionTypeConfigApp          PermissionType = 5
	PermissionTypeFolderAdmin        PermissionType = 6
	PermissionTypeFolderCreate       PermissionType = 7
	PermissionTypeFolderOwner        PermissionType = 8
	PermissionTypeFolderRead         PermissionType = 9
	PermissionTypeFolderReadWrite    PermissionType = 10
	PermissionTypeFolderRemove       PermissionType = 11
	PermissionTypeGroupAdmin         PermissionType = 12
	PermissionTypeOrganizationAdmin  PermissionType = 13
	PermissionTypeOrganizationCreate PermissionType = 14
	PermissionTypeSystemSettings     PermissionType = 15
)

var permissionTypeNames = map[PermissionType]string{
	PermissionTypeAdmin:              "ADMIN",
	PermissionTypeChangePreferences:  "CHANGE_PREFERENCES",
	PermissionTypeChangeTransferMode: "CHANGE_TRANSFER_MODE",
	PermissionTypeComputersApp:       "COMPUTERS_APP",
	PermissionTypeConfigApp:          "CONFIG_APP",
	PermissionTypeFolderAdmin:        "FOLDER_ADMIN",
	PermissionTypeFolderCreate:       "FOLDER_CREATE",
	PermissionTypeFolderOwner:        "FOLDER_OWNER",
	PermissionTypeFolderRead:         "FOLDER_READ",
	PermissionTypeFolderReadWrite:    "FOLDER_READ_WRITE",
	PermissionTypeFolderRemove:       "FOLDER_REMOVE",
	PermissionTypeGroupAdmin:         "GROUP_ADMIN",
	PermissionTypeOrganizationAdmin:  "ORGANIZATION_ADMIN",
	PermissionTypeOrganizationCreate: "ORGANIZATION_CREATE",
	PermissionTypeSystemSettings:     "SYSTEM_SETTINGS",
}

func (t PermissionType) String() string {
	if name, ok := permissionTypeNames[t]; ok {
		return name
	}
	return "UNRECOGNIZED"
}

// Permission is the closed sum of permission variants. Encode dispatches on
// the concrete type with an exhaustive switch; there is no shared encode
// contract in the wire format.
type Permission interface {
	PermissionType() PermissionType
	isPermission()
}

// FolderPermission is the family of folder-scoped variants.
type FolderPermission struct {
	Kind   PermissionType // one of FolderAdmin/FolderOwner/FolderRead/FolderReadWrite
	Folder FolderInfo
}

func (p FolderPermission) PermissionType() PermissionType { return p.Kind }
func (p FolderPermission) isPermission()                  {}

// GroupAdminPermission grants administration of one group.
type GroupAdminPermission struct {
	Group GroupInfo
}

func (p GroupAdminPermission) PermissionType() PermissionType { return PermissionTypeGroupAdmin }
func (p GroupAdminPermission) isPermission()                  {}

// OrganizationAdminPermission grants administration of one organization.
type OrganizationAdminPermission struct {
	OrganizationID string
}

func (p OrganizationAdminPermission) PermissionType() PermissionType {
	return PermissionTypeOrganizationAdmin
}
func (p OrganizationAdminPermission) isPermission() {}

// SingletonPermission covers the global flag-like variants that carry no
// resource payload (ADMIN, CONFIG_APP, FOLDER_CREATE, ...).
type SingletonPermission struct {
	Kind PermissionType
}

func (p SingletonPermission) PermissionType() PermissionType { return p.Kind }
func (p SingletonPermission) isPermission()                  {}

// Convenience constructors for the folder-scoped family.

func FolderReadPermission(fi FolderInfo) FolderPermission {
	return FolderPermission{Kind: PermissionTypeFolderRead, Folder: fi}
}

func FolderReadWritePermission(fi FolderInfo) FolderPermission {
	return FolderPermission{Kind: PermissionTypeFolderReadWrite, Folder: fi}
}

func FolderAdminPermission(fi FolderInfo) FolderPermission {
	return FolderPermission{Kind: PermissionTypeFolderAdmin, Folder: fi}
}

func FolderOwnerPermission(fi FolderInfo) FolderPermission {
	return FolderPermission{Kind: PermissionTypeFolderOwner, Folder: fi}
}

// PermissionInfo is the polymorphic permission envelope: exactly one variant,
// zero or more subjects, and a flag distinguishing a granted permission from
// a pending invitation. A nil Permission means "no permission present".
type PermissionInfo struct {
	Permission Permission
	Subjects   []Subject
	Invitation bool
}

// MarshalPermissionInfo serializes one permission envelope into its nested
// TLV space.
func MarshalPermissionInfo(pi PermissionInfo) []byte {
	if pi.Permission == nil {
		return tlv.Encode([]tlv.Field{tlv.NewUint32(permFieldType, uint32(PermissionTypeUnrecognized))})
	}

	fields := []tlv.Field{tlv.NewUint32(permFieldType, uint32(pi.Permission.PermissionType()))}
	if pi.Invitation {
		fields = append(fields, tlv.NewBool(permFieldInvitation, true))
	}

	switch p := pi.Permission.(type) {
	case FolderPermission:
		fields = append(fields, tlv.NewBytes(permFieldFolder, MarshalFolderInfo(p.Folder)))
	case GroupAdminPermission:
		fields = append(fields, tlv.NewBytes(permFieldGroup, MarshalGroupInfo(p.Group)))
	case OrganizationAdminPermission:
		if p.OrganizationID != "" {
			fields = append(fields, tlv.NewString(permFieldOrgID, p.OrganizationID))
		}
	case SingletonPermission:
		// type discriminator is the whole payload
	}

	for _, s := range pi.Subjects {
		if body := MarshalSubject(s); body != nil {
			fields = append(fields, tlv.NewBytes(permFieldSubject, body))
		}
	}
	return tlv.Encode(fields)
}

// UnmarshalPermissionInfo decodes one permission envelope.
//
// An unrecognized type discriminator is terminal and not an error: the
// envelope decodes to "no permission present". A subject that fails its
// structural decode is dropped and logged; its siblings still populate.
func UnmarshalPermissionInfo(b []byte) (PermissionInfo, error) {
	fields, err := tlv.Decode(b)
	if err != nil {
		return PermissionInfo{}, err
	}

	typeField, ok := tlv.Get(fields, permFieldType)
	if !ok {
		return PermissionInfo{}, nil
	}
	raw, err := typeField.Uint32()
	if err != nil {
		return PermissionInfo{}, nil
	}

	perm := decodePermissionVariant(PermissionType(raw), fields)
	if perm == nil {
		return PermissionInfo{}, nil
	}

	pi := PermissionInfo{Permission: perm}
	if f, ok := tlv.Get(fields, permFieldInvitation); ok {
		if v, err := f.Bool(); err == nil {
			pi.Invitation = v
		}
	}
	for _, f := range tlv.GetAll(fields, permFieldSubject) {
		subject, err := UnmarshalSubject(f.Value)
		if err != nil {
			log.Error().Err(err).Str("permission_type", perm.PermissionType().String()).
				Msg("d2d: dropping undecodable permission subject")
			continue
		}
		pi.Subjects = append(pi.Subjects, subject)
	}
	return pi, nil
}

func decodePermissionVariant(t PermissionType, fields []tlv.Field) Permission {
	switch t {
	case PermissionTypeFolderAdmin, PermissionTypeFolderOwner,
		PermissionTypeFolderRead, PermissionTypeFolderReadWrite:
		p := FolderPermission{Kind: t}
		if f, ok := tlv.Get(fields, permFieldFolder); ok {
			if fi, err := UnmarshalFolderInfo(f.Value); err == nil {
				p.Folder = fi
			} else {
				log.Debug().Err(err).Msg("d2d: permission folder info undecodable")
			}
		}
		return p
	case PermissionTypeGroupAdmin:
		p := GroupAdminPermission{}
		if f, ok := tlv.Get(fields, permFieldGroup); ok {
			if gi, err := UnmarshalGroupInfo(f.Value); err == nil {
				p.Group = gi
			} else {
				log.Debug().Err(err).Msg("d2d: permission group info undecodable")
			}
		}
		return p
	case PermissionTypeOrganizationAdmin:
		return OrganizationAdminPermission{OrganizationID: stringField(fields, permFieldOrgID)}
	case PermissionTypeAdmin, PermissionTypeChangePreferences,
		PermissionTypeChangeTransferMode, PermissionTypeComputersApp,
		PermissionTypeConfigApp, PermissionTypeFolderCreate,
		PermissionTypeFolderRemove, PermissionTypeOrganizationCreate,
		PermissionTypeSystemSettings:
		return SingletonPermission{Kind: t}
	default:
		return nil
	}
}

// BuildPermissionInfos partitions (subject -> permission) grants and
// invitations into one envelope per (permission type, invitation flag)
// combination that has at least one subject. Output order is deterministic:
// grants before invitations, then by type, subjects by id.
func BuildPermissionInfos(permissions, invitations map[Subject]Permission) []PermissionInfo {
	out := bucketPermissions(permissions, false)
	return append(out, bucketPermissions(invitations, true)...)
}

func bucketPermissions(grants map[Subject]Permission, invitation bool) []PermissionInfo {
	type bucket struct {
		perm     Permission
		subjects []Subject
	}
	buckets := make(map[PermissionType]*bucket)
	for subject, perm := range grants {
		if perm == nil || perm.PermissionType() == PermissionTypeUnrecognized {
			continue
		}
		t := perm.PermissionType()
		b, ok := buckets[t]
		if !ok {
			b = &bucket{perm: perm}
			buckets[t] = b
		}
		b.subjects = append(b.subjects, subject)
	}

	types := make([]PermissionType, 0, len(buckets))
	for t := range buckets {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	out := make([]PermissionInfo, 0, len(types))
	for _, t := range types {
		b := buckets[t]
		sort.Slice(b.subjects, func(i, j int) bool {
			return b.subjects[i].SubjectID() < b.subjects[j].SubjectID()
		})
		out = append(out, PermissionInfo{
			Permission: b.perm,
			Subjects:   b.subjects,
			Invitation: invitation,
		})
	}
	return out
}
