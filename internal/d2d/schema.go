package d2d

// Field IDs for the top-level TLV space of every message. Value/info types
// nested as bytes fields carry their own independent ID space.
const (
	FieldRequestCode uint16 = 1
	FieldReplyCode   uint16 = 2
	FieldReplyStatus uint16 = 3

	FieldUsername    uint16 = 100
	FieldPassword    uint16 = 101
	FieldAccountInfo uint16 = 102
	FieldAccountID   uint16 = 103

	FieldFolderInfo uint16 = 200
	FieldFolderID   uint16 = 201

	FieldPermissionInfo uint16 = 300
	FieldScopeID        uint16 = 301

	FieldShareLinkInfo uint16 = 400
	FieldExpiresMS     uint16 = 401

	FieldPingText uint16 = 500
)

// Field IDs for the nested TLV space of a permission envelope.
const (
	permFieldType       uint16 = 1
	permFieldInvitation uint16 = 2
	permFieldSubject    uint16 = 3
	permFieldFolder     uint16 = 4
	permFieldGroup      uint16 = 5
	permFieldOrgID      uint16 = 6
)
