package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	More(ctx context.Context) error
	Search(ctx context.Context, query string) error
	ClearSearch(ctx context.Context) error
	Show(ctx context.Context, id string) error
	New(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Sync(ctx context.Context) error
	Backup(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ChangePassword(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: (l)ist, more, search <text>, clear, show <id>, new, edit <id>, delete <id>, sync, backup, whoami, passwd, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// Note commands need a logged-in session. Handlers report their own errors,
// so a failing command never ends the loop. It returns on EOF, on "exit" or
// "quit", or when ctx is cancelled.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, rest := parts[0], strings.Join(parts[1:], " ")

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "l", "list", "more", "search", "clear", "show", "new", "edit", "delete", "sync", "backup", "whoami", "passwd", "logout":
				printlnFn("Please log in first")
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "l", "list":
			_ = a.List(ctx)
		case "more":
			_ = a.More(ctx)
		case "search":
			_ = a.Search(ctx, rest)
		case "clear":
			_ = a.ClearSearch(ctx)
		case "show":
			_ = a.Show(ctx, rest)
		case "new":
			_ = a.New(ctx)
		case "edit":
			_ = a.Edit(ctx, rest)
		case "delete":
			_ = a.Delete(ctx, rest)
		case "sync":
			_ = a.Sync(ctx)
		case "backup":
			_ = a.Backup(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)
		case "logout":
			_ = a.Logout(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
