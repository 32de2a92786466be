package directory

import (
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/testutil/testlog"
)

func seedService(t *testing.T) (*Service, d2d.AccountInfo, d2d.AccountInfo) {
	t.Helper()
	svc := NewService(Config{})
	owner := svc.AddAccount("alice", "pw-alice", gofakeit.Name())
	other := svc.AddAccount("bob", "pw-bob", gofakeit.Name())
	return svc, owner, other
}

func TestAuthenticate(t *testing.T) {
	testlog.Start(t)
	svc, owner, _ := seedService(t)

	got, err := svc.Authenticate("alice", "pw-alice")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != owner.ID {
		t.Fatalf("wrong account: %+v", got)
	}

	// usernames are case-insensitive
	if _, err := svc.Authenticate("ALICE", "pw-alice"); err != nil {
		t.Fatalf("case-insensitive authenticate: %v", err)
	}

	if _, err := svc.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate("nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateFolderGrantsOwner(t *testing.T) {
	testlog.Start(t)
	svc, owner, _ := seedService(t)

	fi, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1", Name: "docs"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if fi.ID != "f1" {
		t.Fatalf("unexpected folder: %+v", fi)
	}

	infos := svc.Permissions("f1")
	if len(infos) != 1 {
		t.Fatalf("expected 1 permission envelope, got %d", len(infos))
	}
	if infos[0].Permission.PermissionType() != d2d.PermissionTypeFolderOwner {
		t.Fatalf("owner grant missing: %+v", infos[0])
	}
	if len(infos[0].Subjects) != 1 || infos[0].Subjects[0].SubjectID() != owner.ID {
		t.Fatalf("owner not the subject: %+v", infos[0].Subjects)
	}

	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); !errors.Is(err, ErrFolderExists) {
		t.Fatalf("expected ErrFolderExists, got %v", err)
	}
}

func TestRemoveFolderAuthorization(t *testing.T) {
	testlog.Start(t)
	svc, owner, other := seedService(t)
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.RemoveFolder(other.ID, "f1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.RemoveFolder(owner.ID, "missing"); !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
	if err := svc.RemoveFolder(owner.ID, "f1"); err != nil {
		t.Fatalf("owner remove: %v", err)
	}
	if got := svc.ListFolders(owner.ID); len(got) != 0 {
		t.Fatalf("folder still listed after removal: %+v", got)
	}
	if infos := svc.Permissions("f1"); len(infos) != 0 {
		t.Fatalf("grants survive folder removal: %+v", infos)
	}
}

func TestFolderAdminMayRemove(t *testing.T) {
	testlog.Start(t)
	svc, owner, other := seedService(t)
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := svc.ApplyPermissionChange(owner.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderAdminPermission(d2d.FolderInfo{ID: "f1"}),
		Subjects:   []d2d.Subject{other},
	})
	if err != nil {
		t.Fatalf("grant admin: %v", err)
	}
	if err := svc.RemoveFolder(other.ID, "f1"); err != nil {
		t.Fatalf("admin remove: %v", err)
	}
}

func TestListFoldersVisibility(t *testing.T) {
	testlog.Start(t)
	svc, owner, other := seedService(t)
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1", Name: "bravo"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f2", Name: "alpha"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := svc.ListFolders(other.ID); len(got) != 0 {
		t.Fatalf("other should see nothing, got %+v", got)
	}

	err := svc.ApplyPermissionChange(owner.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderReadPermission(d2d.FolderInfo{ID: "f1"}),
		Subjects:   []d2d.Subject{other},
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	got := svc.ListFolders(other.ID)
	if len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("grantee visibility wrong: %+v", got)
	}

	// owner sees both, sorted by name
	mine := svc.ListFolders(owner.ID)
	if len(mine) != 2 || mine[0].Name != "alpha" || mine[1].Name != "bravo" {
		t.Fatalf("owner listing wrong: %+v", mine)
	}
}

func TestPermissionChangeSemantics(t *testing.T) {
	testlog.Start(t)
	svc, owner, other := seedService(t)
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	folder := d2d.FolderInfo{ID: "f1"}

	// non-admin may not change permissions
	err := svc.ApplyPermissionChange(other.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderReadPermission(folder),
		Subjects:   []d2d.Subject{other},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// subject-less envelope is rejected
	err = svc.ApplyPermissionChange(owner.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderReadPermission(folder),
	})
	if !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}

	// invitation first, then a grant supersedes it
	err = svc.ApplyPermissionChange(owner.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderReadPermission(folder),
		Subjects:   []d2d.Subject{other},
		Invitation: true,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	infos := svc.Permissions("f1")
	if len(infos) != 2 {
		t.Fatalf("expected owner grant + invitation, got %+v", infos)
	}

	err = svc.ApplyPermissionChange(owner.ID, "f1", d2d.PermissionInfo{
		Permission: d2d.FolderReadWritePermission(folder),
		Subjects:   []d2d.Subject{other},
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	infos = svc.Permissions("f1")
	for _, pi := range infos {
		if pi.Invitation {
			t.Fatalf("invitation should be superseded by the grant: %+v", infos)
		}
	}

	// a re-grant replaces the previous permission for the same subject
	var found bool
	for _, pi := range infos {
		if pi.Permission.PermissionType() == d2d.PermissionTypeFolderReadWrite {
			found = true
			if len(pi.Subjects) != 1 || pi.Subjects[0].SubjectID() != other.ID {
				t.Fatalf("wrong subject on re-grant: %+v", pi.Subjects)
			}
		}
		if pi.Permission.PermissionType() == d2d.PermissionTypeFolderRead {
			t.Fatalf("stale read grant survived the re-grant: %+v", infos)
		}
	}
	if !found {
		t.Fatalf("read-write grant missing: %+v", infos)
	}
}

func TestCreateShareLink(t *testing.T) {
	testlog.Start(t)
	svc, owner, other := seedService(t)
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	link, err := svc.CreateShareLink(owner.ID, "f1", 123456)
	if err != nil {
		t.Fatalf("owner link: %v", err)
	}
	if link.FolderID != "f1" || link.ExpiresMS != 123456 {
		t.Fatalf("link payload wrong: %+v", link)
	}
	if !strings.HasPrefix(link.URL, "https://links.foldlink.local/s/") {
		t.Fatalf("unexpected link url: %q", link.URL)
	}

	if _, err := svc.CreateShareLink(other.ID, "f1", 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.CreateShareLink(owner.ID, "missing", 0); !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
}

func TestShareLinkBaseURLOverride(t *testing.T) {
	svc := NewService(Config{LinkBaseURL: "https://share.example.com/"})
	owner := svc.AddAccount("carol", "pw", "")
	if _, err := svc.CreateFolder(owner.ID, d2d.FolderInfo{ID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	link, err := svc.CreateShareLink(owner.ID, "f1", 0)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !strings.HasPrefix(link.URL, "https://share.example.com/s/") {
		t.Fatalf("base url not applied: %q", link.URL)
	}
}
