package node_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/directory"
	"github.com/foldlink/foldlink/internal/node"
	"github.com/foldlink/foldlink/internal/session"
	"github.com/foldlink/foldlink/internal/testutil/testlog"
	"github.com/foldlink/foldlink/internal/testutil/tlstest"
)

func TestMutualTLSEndToEnd(t *testing.T) {
	testlog.Start(t)

	ca := tlstest.NewAuthority(t, "foldlink-test-ca")
	serverCert, serverKey := ca.IssueServerCert(t, "server",
		[]string{"localhost"}, []net.IP{net.ParseIP("127.0.0.1")})
	clientCert, clientKey := ca.IssueClientCert(t, "client")

	svc := directory.NewService(directory.Config{})
	svc.AddAccount("alice", "pw-alice", "Alice")

	srv, err := node.NewServer(node.ServerConfig{
		Address: "127.0.0.1:0",
		NodeID:  "tls-server",
		Session: session.Config{
			SecurityMode: session.SecurityModeProduction,
			TLS: session.TLSConfig{
				Enabled:  true,
				Mutual:   true,
				CAFile:   ca.CAFile(),
				CertFile: serverCert,
				KeyFile:  serverKey,
			},
		},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := directory.RegisterHandlers(srv, svc); err != nil {
		t.Fatalf("register handlers: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dialCancel()
	client, err := node.Dial(dialCtx, node.ClientConfig{
		Address:            srv.Addr().String(),
		NodeID:             "tls-client",
		MaxConnectAttempts: 3,
		Session: session.Config{
			SecurityMode: session.SecurityModeProduction,
			CallTimeout:  5 * time.Second,
			TLS: session.TLSConfig{
				Enabled:  true,
				Mutual:   true,
				CAFile:   ca.CAFile(),
				CertFile: clientCert,
				KeyFile:  clientKey,
			},
		},
	})
	if err != nil {
		t.Fatalf("dial over mtls: %v", err)
	}
	defer client.Close()

	code := client.NextCode()
	reply, err := client.Call(context.Background(), &d2d.LoginRequest{
		RequestBase: d2d.RequestBase{Code: code},
		Username:    "alice",
		Password:    "pw-alice",
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !reply.Status().OK() || reply.ReplyCode() != code {
		t.Fatalf("login over mtls failed: %s %q", reply.Status(), reply.ReplyCode())
	}
}
