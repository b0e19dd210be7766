package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/multichat/internal/server/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Models prints the catalog, marking the selected model.
func (a *App) Models(ctx context.Context) error {
	var list []models.Model
	err := a.withRefresh(ctx, func() (err error) {
		list, err = a.api.AvailableModels(ctx)
		return err
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, m := range list {
		mark := " "
		if m.Tag == a.modelTag {
			mark = "*"
		}
		desc := ""
		if m.Description != nil {
			desc = *m.Description
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, m.Tag, m.Name, desc)
	}
	return w.Flush()
}

// Use selects the model that later prompts are sent to.
func (a *App) Use(ctx context.Context, tag string) error {
	var list []models.Model
	err := a.withRefresh(ctx, func() (err error) {
		list, err = a.api.AvailableModels(ctx)
		return err
	})
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.Tag == tag {
			a.modelTag = tag
			fmt.Fprintf(a.out, "Using model %s (%s)\n", m.Name, m.Tag)
			return nil
		}
	}
	return fmt.Errorf("unknown model %q, see 'models'", tag)
}

// History prints the conversation oldest first.
func (a *App) History(ctx context.Context) error {
	var list []models.Message
	err := a.withRefresh(ctx, func() (err error) {
		list, err = a.api.History(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No messages yet")
		return nil
	}
	for _, m := range list {
		fmt.Fprintf(a.out, "[%s] %s %s@%s: %s\n", m.CreatedAt.Local().Format(timeLayout), m.ID, m.Role, m.ModelTag, m.Content)
	}
	return nil
}

// Delete removes one message from the history.
func (a *App) Delete(ctx context.Context, id string) error {
	err := a.withRefresh(ctx, func() error {
		return a.api.DeleteMessage(ctx, id)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// Send relays prompt to the selected model and prints the reply.
func (a *App) Send(ctx context.Context, prompt string) error {
	if a.modelTag == "" {
		return fmt.Errorf("no model selected, see 'models' and 'use <tag>'")
	}

	var reply *models.Message
	err := a.withRefresh(ctx, func() error {
		res, err := a.api.Send(ctx, a.modelTag, prompt)
		if err != nil {
			return err
		}
		reply = res.AssistantMessage
		return nil
	})
	if err != nil {
		return err
	}

	if reply != nil {
		fmt.Fprintf(a.out, "%s> %s\n", a.modelTag, reply.Content)
	}
	return nil
}
