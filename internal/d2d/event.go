package d2d

// NodeEvent is the fixed dispatch key a request-to-server type declares. The
// receiving node routes on this tag through a static table; it never inspects
// the concrete type hierarchy.
type NodeEvent string

const (
	EventLogin            NodeEvent = "login"
	EventAccountInfo      NodeEvent = "account.info"
	EventFolderCreate     NodeEvent = "folder.create"
	EventFolderRemove     NodeEvent = "folder.remove"
	EventFolderList       NodeEvent = "folder.list"
	EventPermissionList   NodeEvent = "permission.list"
	EventPermissionChange NodeEvent = "permission.change"
	EventShareLinkCreate  NodeEvent = "sharelink.create"
	EventPing             NodeEvent = "ping"
)
