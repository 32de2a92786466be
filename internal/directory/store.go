// Package directory is the in-memory authority a server node dispatches
// into: accounts, shared folders, permission grants and invitations, and
// share links.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/auth"
	"github.com/foldlink/foldlink/internal/d2d"
)

var (
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrAccountNotFound    = errors.New("directory: account not found")
	ErrFolderExists       = errors.New("directory: folder already exists")
	ErrFolderNotFound     = errors.New("directory: folder not found")
	ErrForbidden          = errors.New("directory: forbidden")
	ErrNoSubject          = errors.New("directory: permission change has no subject")
)

type account struct {
	info     d2d.AccountInfo
	password auth.Secret
}

type folder struct {
	info    d2d.FolderInfo
	ownerID string
}

type grant struct {
	subject d2d.Subject
	perm    d2d.Permission
}

// grantSet keys grants by subject id so a re-grant replaces the previous
// permission for the same subject.
type grantSet map[string]grant

type shareLink struct {
	info d2d.ShareLinkInfo
}

// Config tunes the directory service.
type Config struct {
	// LinkBaseURL prefixes generated share link URLs.
	LinkBaseURL string
}

// Service holds the directory state. All methods are safe for concurrent
// use; each takes the single lock for its whole critical section so a reply
// always reflects one consistent snapshot.
type Service struct {
	mu          sync.Mutex
	accounts    map[string]*account // by lowercase username
	accountByID map[string]*account
	folders     map[string]*folder // by folder id
	grants      map[string]grantSet
	invitations map[string]grantSet
	links       map[string]*shareLink
	linkBase    string
}

func NewService(cfg Config) *Service {
	base := strings.TrimRight(strings.TrimSpace(cfg.LinkBaseURL), "/")
	if base == "" {
		base = "https://links.foldlink.local"
	}
	return &Service{
		accounts:    make(map[string]*account),
		accountByID: make(map[string]*account),
		folders:     make(map[string]*folder),
		grants:      make(map[string]grantSet),
		invitations: make(map[string]grantSet),
		links:       make(map[string]*shareLink),
		linkBase:    base,
	}
}

// AddAccount seeds an account and returns its projection. Usernames are
// case-insensitive; re-adding a username replaces the password.
func (s *Service) AddAccount(username, password, displayName string) d2d.AccountInfo {
	key := strings.ToLower(strings.TrimSpace(username))
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.accounts[key]; ok {
		existing.password = auth.Secret(password)
		existing.info.DisplayName = displayName
		return existing.info
	}
	acc := &account{
		info: d2d.AccountInfo{
			ID:          uuid.NewString(),
			Username:    strings.TrimSpace(username),
			DisplayName: displayName,
		},
		password: auth.Secret(password),
	}
	s.accounts[key] = acc
	s.accountByID[acc.info.ID] = acc
	return acc.info
}

// Authenticate checks username/password and returns the account projection.
func (s *Service) Authenticate(username, password string) (d2d.AccountInfo, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[key]
	if !ok || !acc.password.Matches(password) {
		return d2d.AccountInfo{}, ErrInvalidCredentials
	}
	return acc.info, nil
}

// AccountByID returns the projection for one account id.
func (s *Service) AccountByID(id string) (d2d.AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accountByID[id]
	if !ok {
		return d2d.AccountInfo{}, ErrAccountNotFound
	}
	return acc.info, nil
}

// CreateFolder registers a folder owned by ownerID. The owner receives a
// FOLDER_OWNER grant in the folder's permission scope.
func (s *Service) CreateFolder(ownerID string, info d2d.FolderInfo) (d2d.FolderInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.accountByID[ownerID]
	if !ok {
		return d2d.FolderInfo{}, ErrAccountNotFound
	}
	if _, exists := s.folders[info.ID]; exists {
		return d2d.FolderInfo{}, fmt.Errorf("%w: %s", ErrFolderExists, info.ID)
	}
	s.folders[info.ID] = &folder{info: info, ownerID: ownerID}
	s.setGrantLocked(s.grants, info.ID, owner.info, d2d.FolderOwnerPermission(info))
	log.Info().Str("folder", info.ID).Str("owner", ownerID).Msg("directory: folder created")
	return info, nil
}

// RemoveFolder deletes a folder, its grants, invitations and share links.
// Only the owner or a subject holding FOLDER_ADMIN in the folder scope may
// remove it.
func (s *Service) RemoveFolder(actorID, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok {
		return ErrFolderNotFound
	}
	if !s.mayAdministerLocked(actorID, f) {
		return ErrForbidden
	}
	delete(s.folders, folderID)
	delete(s.grants, folderID)
	delete(s.invitations, folderID)
	for id, link := range s.links {
		if link.info.FolderID == folderID {
			delete(s.links, id)
		}
	}
	log.Info().Str("folder", folderID).Str("actor", actorID).Msg("directory: folder removed")
	return nil
}

// ListFolders returns the folders visible to accountID: owned folders plus
// folders where the account holds any grant. Sorted by name then id.
func (s *Service) ListFolders(accountID string) []d2d.FolderInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []d2d.FolderInfo
	for id, f := range s.folders {
		if f.ownerID == accountID {
			out = append(out, f.info)
			continue
		}
		if set, ok := s.grants[id]; ok {
			if _, ok := set[accountID]; ok {
				out = append(out, f.info)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Permissions returns the permission envelopes for one scope, bucketed by
// (type, invitation) with deterministic order.
func (s *Service) Permissions(scopeID string) []d2d.PermissionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return d2d.BuildPermissionInfos(
		collapseGrants(s.grants[scopeID]),
		collapseGrants(s.invitations[scopeID]),
	)
}

func collapseGrants(set grantSet) map[d2d.Subject]d2d.Permission {
	if len(set) == 0 {
		return nil
	}
	out := make(map[d2d.Subject]d2d.Permission, len(set))
	for _, g := range set {
		out[g.subject] = g.perm
	}
	return out
}

// ApplyPermissionChange grants or invites the envelope's subject in scope.
// A re-grant for the same subject replaces the previous permission; an
// invitation accepted later is promoted by granting without the flag.
func (s *Service) ApplyPermissionChange(actorID, scopeID string, info d2d.PermissionInfo) error {
	if len(info.Subjects) == 0 {
		return ErrNoSubject
	}
	subject := info.Subjects[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.folders[scopeID]; ok {
		if !s.mayAdministerLocked(actorID, f) {
			return ErrForbidden
		}
	}
	target := s.grants
	if info.Invitation {
		target = s.invitations
	} else {
		// a grant supersedes a pending invitation for the same subject
		if set, ok := s.invitations[scopeID]; ok {
			delete(set, subject.SubjectID())
		}
	}
	s.setGrantLocked(target, scopeID, subject, info.Permission)
	log.Info().Str("scope", scopeID).Str("subject", subject.SubjectID()).
		Str("type", info.Permission.PermissionType().String()).
		Bool("invitation", info.Invitation).
		Msg("directory: permission changed")
	return nil
}

// CreateShareLink issues a link for folderID. Any subject with a grant in
// the folder scope (or the owner) may create one.
func (s *Service) CreateShareLink(actorID, folderID string, expiresMS uint64) (d2d.ShareLinkInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok {
		return d2d.ShareLinkInfo{}, ErrFolderNotFound
	}
	if f.ownerID != actorID {
		set, ok := s.grants[folderID]
		if !ok {
			return d2d.ShareLinkInfo{}, ErrForbidden
		}
		if _, ok := set[actorID]; !ok {
			return d2d.ShareLinkInfo{}, ErrForbidden
		}
	}
	id := uuid.NewString()
	link := &shareLink{info: d2d.ShareLinkInfo{
		ID:        id,
		FolderID:  folderID,
		URL:       fmt.Sprintf("%s/s/%s", s.linkBase, id),
		ExpiresMS: expiresMS,
	}}
	s.links[id] = link
	return link.info, nil
}

func (s *Service) setGrantLocked(target map[string]grantSet, scopeID string, subject d2d.Subject, perm d2d.Permission) {
	set, ok := target[scopeID]
	if !ok {
		set = make(grantSet)
		target[scopeID] = set
	}
	set[subject.SubjectID()] = grant{subject: subject, perm: perm}
}

// mayAdministerLocked reports whether actorID owns f or holds a folder
// admin-level grant in its scope.
func (s *Service) mayAdministerLocked(actorID string, f *folder) bool {
	if f.ownerID == actorID {
		return true
	}
	set, ok := s.grants[f.info.ID]
	if !ok {
		return false
	}
	g, ok := set[actorID]
	if !ok {
		return false
	}
	switch g.perm.PermissionType() {
	case d2d.PermissionTypeFolderAdmin, d2d.PermissionTypeFolderOwner:
		return true
	default:
		return false
	}
}
