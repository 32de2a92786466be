package d2d

import (
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/foldlink/foldlink/internal/testutil/testlog"
	"github.com/foldlink/foldlink/internal/wire"
)

func TestEncodeDecodeLoginRequest(t *testing.T) {
	testlog.Start(t)
	req := &LoginRequest{
		RequestBase: RequestBase{Code: gofakeit.UUID()},
		Username:    gofakeit.Username(),
		Password:    gofakeit.Password(true, true, true, false, false, 12),
	}

	env, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Name != "LoginRequest" {
		t.Fatalf("discriminator mismatch: %q", env.Name)
	}
	if env.Flags != 0 {
		t.Fatalf("request should carry no flags, got %#x", env.Flags)
	}

	msg, err := DefaultRegistry().Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := msg.(*LoginRequest)
	if !ok {
		t.Fatalf("decoded wrong type: %T", msg)
	}
	if got.Code != req.Code || got.Username != req.Username || got.Password != req.Password {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestEncodeReplyFlags(t *testing.T) {
	testlog.Start(t)
	okReply := &FolderRemoveReply{ReplyBase: ReplyBase{Code: "c1", StatusCode: StatusOK}}
	env, err := Encode(okReply)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Flags&wire.FlagIsResponse == 0 {
		t.Fatalf("reply missing response flag")
	}
	if env.Flags&wire.FlagIsError != 0 {
		t.Fatalf("OK reply should not carry error flag")
	}

	errReply := &FolderRemoveReply{ReplyBase: ReplyBase{Code: "c1", StatusCode: StatusNotFound}}
	env, err = Encode(errReply)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Flags&wire.FlagIsError == 0 {
		t.Fatalf("failed reply missing error flag")
	}
}

func TestEncodeNotificationFlag(t *testing.T) {
	env, err := Encode(&Ping{Text: "hi"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.Flags&wire.FlagIsNotify == 0 {
		t.Fatalf("notification missing notify flag")
	}
}

func TestDecodeUnknownDiscriminator(t *testing.T) {
	testlog.Start(t)
	_, err := DefaultRegistry().Decode(wire.Envelope{Name: "FutureMessage"})
	if !errors.Is(err, ErrUnhandled) {
		t.Fatalf("expected ErrUnhandled, got %v", err)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(func() Message { return &Ping{} })
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	r.MustRegister(func() Message { return &Ping{} })
}

func TestDecodeFolderListReply(t *testing.T) {
	testlog.Start(t)
	reply := &FolderListReply{
		ReplyBase: ReplyBase{Code: gofakeit.UUID(), StatusCode: StatusOK},
		Folders: []FolderInfo{
			{ID: "f1", Name: "docs"},
			{ID: "f2", Name: "media"},
			{ID: "f3"},
		},
	}
	env, err := Encode(reply)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := DefaultRegistry().Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := msg.(*FolderListReply)
	if got.ReplyCode() != reply.Code {
		t.Fatalf("reply code mismatch: %q", got.ReplyCode())
	}
	if len(got.Folders) != 3 {
		t.Fatalf("expected 3 folders, got %d", len(got.Folders))
	}
	if got.Folders[1].Name != "media" {
		t.Fatalf("folder order not preserved: %+v", got.Folders)
	}
}

func TestDecodeUnknownStatusMapsToUnknown(t *testing.T) {
	reply := &FolderRemoveReply{ReplyBase: ReplyBase{Code: "c", StatusCode: StatusCode(77)}}
	env, err := Encode(reply)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := DefaultRegistry().Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := msg.(*FolderRemoveReply).Status(); got != StatusUnknown {
		t.Fatalf("expected StatusUnknown, got %v", got)
	}
}

func TestRegistryKnowsCatalogue(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{
		"LoginRequest", "LoginReply",
		"AccountInfoRequest", "AccountInfoReply",
		"FolderCreateRequest", "FolderCreateReply",
		"FolderRemoveRequest", "FolderRemoveReply",
		"FolderListRequest", "FolderListReply",
		"PermissionListRequest", "PermissionListReply",
		"PermissionChangeRequest", "PermissionChangeReply",
		"ShareLinkCreateRequest", "ShareLinkCreateReply",
		"Ping", "Pong",
	} {
		if !r.Known(name) {
			t.Fatalf("registry missing %s", name)
		}
	}
}
