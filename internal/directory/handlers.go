package directory

import (
	"context"
	"errors"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/node"
)

// RegisterHandlers wires the directory service into a server's routing
// table, one handler per node event.
func RegisterHandlers(srv *node.Server, svc *Service) error {
	type entry struct {
		event d2d.NodeEvent
		fn    node.HandlerFunc
	}
	entries := []entry{
		{d2d.EventLogin, svc.handleLogin},
		{d2d.EventAccountInfo, svc.authenticated(svc.handleAccountInfo)},
		{d2d.EventFolderCreate, svc.authenticated(svc.handleFolderCreate)},
		{d2d.EventFolderRemove, svc.authenticated(svc.handleFolderRemove)},
		{d2d.EventFolderList, svc.authenticated(svc.handleFolderList)},
		{d2d.EventPermissionList, svc.authenticated(svc.handlePermissionList)},
		{d2d.EventPermissionChange, svc.authenticated(svc.handlePermissionChange)},
		{d2d.EventShareLinkCreate, svc.authenticated(svc.handleShareLinkCreate)},
	}
	for _, e := range entries {
		if err := srv.Register(e.event, e.fn); err != nil {
			return err
		}
	}
	return nil
}

// authenticated rejects requests on connections that have not completed
// login.
func (s *Service) authenticated(fn node.HandlerFunc) node.HandlerFunc {
	return func(ctx context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
		if sess.AccountID() == "" {
			return d2d.RejectionReply(req, d2d.StatusUnauthorized), nil
		}
		return fn(ctx, sess, req)
	}
}

func (s *Service) handleLogin(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.LoginRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	acc, err := s.Authenticate(r.Username, r.Password)
	if err != nil {
		return &d2d.LoginReply{ReplyBase: replyBase(d2d.StatusUnauthorized)}, nil
	}
	sess.SetAccount(acc.ID)
	return &d2d.LoginReply{ReplyBase: replyBase(d2d.StatusOK), Account: &acc}, nil
}

func (s *Service) handleAccountInfo(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.AccountInfoRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	id := r.AccountID
	if id == "" {
		id = sess.AccountID()
	}
	acc, err := s.AccountByID(id)
	if err != nil {
		return &d2d.AccountInfoReply{ReplyBase: replyBase(statusFor(err))}, nil
	}
	return &d2d.AccountInfoReply{ReplyBase: replyBase(d2d.StatusOK), Account: &acc}, nil
}

func (s *Service) handleFolderCreate(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.FolderCreateRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	fi, err := s.CreateFolder(sess.AccountID(), *r.Folder)
	if err != nil {
		return &d2d.FolderCreateReply{ReplyBase: replyBase(statusFor(err))}, nil
	}
	return &d2d.FolderCreateReply{ReplyBase: replyBase(d2d.StatusOK), Folder: &fi}, nil
}

func (s *Service) handleFolderRemove(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.FolderRemoveRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	if err := s.RemoveFolder(sess.AccountID(), r.FolderID); err != nil {
		return &d2d.FolderRemoveReply{ReplyBase: replyBase(statusFor(err))}, nil
	}
	return &d2d.FolderRemoveReply{ReplyBase: replyBase(d2d.StatusOK)}, nil
}

func (s *Service) handleFolderList(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	if _, ok := req.(*d2d.FolderListRequest); !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	return &d2d.FolderListReply{
		ReplyBase: replyBase(d2d.StatusOK),
		Folders:   s.ListFolders(sess.AccountID()),
	}, nil
}

func (s *Service) handlePermissionList(_ context.Context, _ *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.PermissionListRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	return &d2d.PermissionListReply{
		ReplyBase: replyBase(d2d.StatusOK),
		Infos:     s.Permissions(r.ScopeID),
	}, nil
}

func (s *Service) handlePermissionChange(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.PermissionChangeRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	if err := s.ApplyPermissionChange(sess.AccountID(), r.ScopeID, *r.Info); err != nil {
		return &d2d.PermissionChangeReply{ReplyBase: replyBase(statusFor(err))}, nil
	}
	return &d2d.PermissionChangeReply{ReplyBase: replyBase(d2d.StatusOK)}, nil
}

func (s *Service) handleShareLinkCreate(_ context.Context, sess *node.Session, req d2d.Request) (d2d.Reply, error) {
	r, ok := req.(*d2d.ShareLinkCreateRequest)
	if !ok {
		return d2d.RejectionReply(req, d2d.StatusBadRequest), nil
	}
	link, err := s.CreateShareLink(sess.AccountID(), r.FolderID, r.ExpiresMS)
	if err != nil {
		return &d2d.ShareLinkCreateReply{ReplyBase: replyBase(statusFor(err))}, nil
	}
	return &d2d.ShareLinkCreateReply{ReplyBase: replyBase(d2d.StatusOK), Link: &link}, nil
}

// replyBase leaves the code empty; the server stamps it from the request.
func replyBase(status d2d.StatusCode) d2d.ReplyBase {
	return d2d.ReplyBase{StatusCode: status}
}

func statusFor(err error) d2d.StatusCode {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return d2d.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return d2d.StatusNoPermission
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrFolderNotFound):
		return d2d.StatusNotFound
	case errors.Is(err, ErrFolderExists):
		return d2d.StatusConflict
	case errors.Is(err, ErrNoSubject):
		return d2d.StatusBadRequest
	default:
		return d2d.StatusInternalError
	}
}
