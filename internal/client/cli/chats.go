package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
)

func (a *App) User(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("user <id>")
	}
	a.userID = args[0]
	return nil
}

func (a *App) Chats(ctx context.Context, args []string) error {
	list, err := a.chats.Chats(ctx, a.userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn(a.out, "No chats.")
		return nil
	}
	for _, c := range list {
		printlnFn(a.out, fmt.Sprintf("%s  %s  (%s)", c.ID, c.Title, c.CreatedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

func (a *App) NewChat(ctx context.Context, args []string) error {
	c, err := a.chats.StartChat(ctx, a.userID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printlnFn(a.out, fmt.Sprintf("Chat %s started.", c.ID))
	return nil
}

func (a *App) Say(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("say <chat-id> <text>")
	}
	_, err := a.chats.Send(ctx, args[0], string(models.SenderUser), strings.Join(args[1:], " "))
	return err
}

func (a *App) History(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("history <chat-id>")
	}
	c, err := a.chats.History(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(a.out, "# "+c.Title)
	for _, m := range c.Messages {
		printlnFn(a.out, fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("15:04"), m.Sender, m.Content))
	}
	return nil
}

func (a *App) RenameChat(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("rename <chat-id> <title>")
	}
	return a.chats.Rename(ctx, args[0], strings.Join(args[1:], " "))
}

func (a *App) RemoveChat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmchat <chat-id>")
	}
	return a.chats.Delete(ctx, args[0])
}

func (a *App) ClearChats(ctx context.Context, args []string) error {
	return a.chats.Clear(ctx, a.userID)
}
