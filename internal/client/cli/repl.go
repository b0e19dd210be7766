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
	Models(ctx context.Context) error
	Use(ctx context.Context, tag string) error
	History(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Send(ctx context.Context, prompt string) error
}

// runREPL reads lines from reader until EOF, "exit" or "quit". The first
// word selects a command; once logged in, a line that is not a command is
// sent as a prompt. Command errors are printed and the loop continues.
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account
//	  - login          authenticate
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - help           show available commands
//	  - models         list models
//	  - use <tag>      select the model for prompts
//	  - history        show the conversation
//	  - delete <id>    delete a message
//	  - logout         log out
//	  - exit | quit    leave the program
//	  - anything else  send as a prompt
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("mc %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args, line); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string, line string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn("Available commands: models, use <tag>, history, delete <id>, logout, exit; anything else is sent as a prompt")
		} else {
			printlnFn("Available commands: register, login, exit")
		}
		return nil

	case "register":
		return a.Register(ctx)

	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		printlnFn("Please login or register first (type 'help' for commands)")
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)

	case "models":
		return a.Models(ctx)

	case "use":
		if len(args) != 1 {
			printlnFn("Usage: use <tag>")
			return nil
		}
		return a.Use(ctx, args[0])

	case "history":
		return a.History(ctx)

	case "delete":
		if len(args) != 1 {
			printlnFn("Usage: delete <id>")
			return nil
		}
		return a.Delete(ctx, args[0])

	default:
		return a.Send(ctx, line)
	}
}
