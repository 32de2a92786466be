package d2d

// RejectionReply builds the status-only reply matching a request type, used
// when the precondition gate or dispatch refuses the request before any
// handler runs. The reply code echoes the request code verbatim. Returns nil
// for request types outside the catalogue.
func RejectionReply(req Request, status StatusCode) Reply {
	base := ReplyBase{Code: req.RequestCode(), StatusCode: status}
	switch req.(type) {
	case *LoginRequest:
		return &LoginReply{ReplyBase: base}
	case *AccountInfoRequest:
		return &AccountInfoReply{ReplyBase: base}
	case *FolderCreateRequest:
		return &FolderCreateReply{ReplyBase: base}
	case *FolderRemoveRequest:
		return &FolderRemoveReply{ReplyBase: base}
	case *FolderListRequest:
		return &FolderListReply{ReplyBase: base}
	case *PermissionListRequest:
		return &PermissionListReply{ReplyBase: base}
	case *PermissionChangeRequest:
		return &PermissionChangeReply{ReplyBase: base}
	case *ShareLinkCreateRequest:
		return &ShareLinkCreateReply{ReplyBase: base}
	default:
		return nil
	}
}
