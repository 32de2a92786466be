package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/logging"
	"github.com/foldlink/foldlink/internal/node"
)

func main() {
	configPath := flag.String("config", "cmd/foldlink/config.toml", "path to client config")
	flag.Parse()

	logging.ConfigureRuntime()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadSettings(*configPath)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := node.Dial(ctx, node.ClientConfig{
		Address:            cfg.ServerAddr,
		NodeID:             cfg.NodeID,
		Nick:               cfg.Nick,
		Session:            cfg.Session,
		MaxConnectAttempts: 3,
	})
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	if err := login(ctx, client, cfg); err != nil {
		fatal(err)
	}
	if err := run(ctx, client, args); err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: foldlink [-config path] <command>

commands:
  account [id]                         show an account (own account by default)
  folder create <id> [name]            create a shared folder
  folder list                          list visible folders
  folder remove <id>                   remove a folder
  perm list <scope>                    list permission envelopes for a scope
  perm grant <scope> <type> <account>  grant a permission (-invite for invitation)
  link create <folder> [expires-ms]    create a share link
  ping [text]                          send a keepalive ping`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "foldlink: %v\n", err)
	os.Exit(1)
}

func login(ctx context.Context, client *node.Client, cfg settings) error {
	reply, err := call(ctx, client, &d2d.LoginRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return err
	}
	if !reply.Status().OK() {
		return fmt.Errorf("login failed: %s", reply.Status())
	}
	return nil
}

func run(ctx context.Context, client *node.Client, args []string) error {
	switch args[0] {
	case "account":
		var id string
		if len(args) > 1 {
			id = args[1]
		}
		return showAccount(ctx, client, id)
	case "folder":
		if len(args) < 2 {
			return fmt.Errorf("folder: missing subcommand")
		}
		switch args[1] {
		case "create":
			if len(args) < 3 {
				return fmt.Errorf("folder create: missing folder id")
			}
			name := ""
			if len(args) > 3 {
				name = args[3]
			}
			return folderCreate(ctx, client, args[2], name)
		case "list":
			return folderList(ctx, client)
		case "remove":
			if len(args) < 3 {
				return fmt.Errorf("folder remove: missing folder id")
			}
			return folderRemove(ctx, client, args[2])
		default:
			return fmt.Errorf("folder: unknown subcommand %q", args[1])
		}
	case "perm":
		if len(args) < 2 {
			return fmt.Errorf("perm: missing subcommand")
		}
		switch args[1] {
		case "list":
			if len(args) < 3 {
				return fmt.Errorf("perm list: missing scope id")
			}
			return permList(ctx, client, args[2])
		case "grant":
			return permGrant(ctx, client, args[2:])
		default:
			return fmt.Errorf("perm: unknown subcommand %q", args[1])
		}
	case "link":
		if len(args) < 2 || args[1] != "create" {
			return fmt.Errorf("link: unknown subcommand")
		}
		if len(args) < 3 {
			return fmt.Errorf("link create: missing folder id")
		}
		var expires uint64
		if len(args) > 3 {
			v, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("link create: bad expires-ms: %w", err)
			}
			expires = v
		}
		return linkCreate(ctx, client, args[2], expires)
	case "ping":
		text := ""
		if len(args) > 1 {
			text = args[1]
		}
		return client.Notify(&d2d.Ping{Text: text})
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func call(ctx context.Context, client *node.Client, req d2d.Request) (d2d.Reply, error) {
	reply, err := client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func showAccount(ctx context.Context, client *node.Client, id string) error {
	reply, err := call(ctx, client, &d2d.AccountInfoRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		AccountID:   id,
	})
	if err != nil {
		return err
	}
	r := reply.(*d2d.AccountInfoReply)
	if !r.Status().OK() {
		return fmt.Errorf("account: %s", r.Status())
	}
	fmt.Printf("id=%s username=%s display_name=%q\n", r.Account.ID, r.Account.Username, r.Account.DisplayName)
	return nil
}

func folderCreate(ctx context.Context, client *node.Client, id, name string) error {
	reply, err := call(ctx, client, &d2d.FolderCreateRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		Folder:      &d2d.FolderInfo{ID: id, Name: name},
	})
	if err != nil {
		return err
	}
	r := reply.(*d2d.FolderCreateReply)
	if !r.Status().OK() {
		return fmt.Errorf("folder create: %s", r.Status())
	}
	fmt.Printf("created %s\n", r.Folder.ID)
	return nil
}

func folderList(ctx context.Context, client *node.Client) error {
	reply, err := call(ctx, client, &d2d.FolderListRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
	})
	if err != nil {
		return err
	}
	r := reply.(*d2d.FolderListReply)
	if !r.Status().OK() {
		return fmt.Errorf("folder list: %s", r.Status())
	}
	for _, fi := range r.Folders {
		fmt.Printf("%s\t%s\n", fi.ID, fi.Name)
	}
	return nil
}

func folderRemove(ctx context.Context, client *node.Client, id string) error {
	reply, err := call(ctx, client, &d2d.FolderRemoveRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		FolderID:    id,
	})
	if err != nil {
		return err
	}
	if !reply.Status().OK() {
		return fmt.Errorf("folder remove: %s", reply.Status())
	}
	fmt.Printf("removed %s\n", id)
	return nil
}

func permList(ctx context.Context, client *node.Client, scope string) error {
	reply, err := call(ctx, client, &d2d.PermissionListRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		ScopeID:     scope,
	})
	if err != nil {
		return err
	}
	r := reply.(*d2d.PermissionListReply)
	if !r.Status().OK() {
		return fmt.Errorf("perm list: %s", r.Status())
	}
	for _, pi := range r.Infos {
		kind := "grant"
		if pi.Invitation {
			kind = "invitation"
		}
		subjects := make([]string, 0, len(pi.Subjects))
		for _, s := range pi.Subjects {
			subjects = append(subjects, s.SubjectID())
		}
		fmt.Printf("%s\t%s\t%s\n", pi.Permission.PermissionType(), kind, strings.Join(subjects, ","))
	}
	return nil
}

func permGrant(ctx context.Context, client *node.Client, args []string) error {
	fs := flag.NewFlagSet("perm grant", flag.ContinueOnError)
	invite := fs.Bool("invite", false, "record an invitation instead of a grant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 3 {
		return fmt.Errorf("perm grant: want <scope> <type> <account-id>")
	}
	scope, typeName, accountID := rest[0], rest[1], rest[2]

	perm, err := permissionByName(typeName, scope)
	if err != nil {
		return err
	}

	// resolve the subject so the grant carries its projection
	acctReply, err := call(ctx, client, &d2d.AccountInfoRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		AccountID:   accountID,
	})
	if err != nil {
		return err
	}
	ar := acctReply.(*d2d.AccountInfoReply)
	if !ar.Status().OK() || ar.Account == nil {
		return fmt.Errorf("perm grant: subject account: %s", ar.Status())
	}

	reply, err := call(ctx, client, &d2d.PermissionChangeRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		ScopeID:     scope,
		Info: &d2d.PermissionInfo{
			Permission: perm,
			Subjects:   []d2d.Subject{*ar.Account},
			Invitation: *invite,
		},
	})
	if err != nil {
		return err
	}
	if !reply.Status().OK() {
		return fmt.Errorf("perm grant: %s", reply.Status())
	}
	fmt.Printf("granted %s to %s in %s\n", perm.PermissionType(), accountID, scope)
	return nil
}

func permissionByName(name, scope string) (d2d.Permission, error) {
	folder := d2d.FolderInfo{ID: scope}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "read":
		return d2d.FolderReadPermission(folder), nil
	case "readwrite", "read-write":
		return d2d.FolderReadWritePermission(folder), nil
	case "admin":
		return d2d.FolderAdminPermission(folder), nil
	case "owner":
		return d2d.FolderOwnerPermission(folder), nil
	default:
		return nil, fmt.Errorf("unknown permission type %q (want read|readwrite|admin|owner)", name)
	}
}

func linkCreate(ctx context.Context, client *node.Client, folderID string, expiresMS uint64) error {
	reply, err := call(ctx, client, &d2d.ShareLinkCreateRequest{
		RequestBase: d2d.RequestBase{Code: client.NextCode()},
		FolderID:    folderID,
		ExpiresMS:   expiresMS,
	})
	if err != nil {
		return err
	}
	r := reply.(*d2d.ShareLinkCreateReply)
	if !r.Status().OK() {
		return fmt.Errorf("link create: %s", r.Status())
	}
	fmt.Println(r.Link.URL)
	return nil
}
