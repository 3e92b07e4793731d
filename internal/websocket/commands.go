package websocket

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/dashboard"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

// Command is one client instruction to the dashboard.
type Command struct {
	Type    string `json:"type" validate:"required,oneof=draft draft_kind create edit exit_edit edit_buffer update delete search kind toggle_month toggle_diary"`
	Text    string `json:"text"`
	ID      string `json:"id" validate:"required_if=Type edit,required_if=Type delete,required_if=Type toggle_diary"`
	Label   string `json:"label" validate:"required_if=Type toggle_month"`
	Kind    string `json:"kind" validate:"required_if=Type draft_kind"`
	Confirm bool   `json:"confirm"`
}

// Outbound frames.
type frame struct {
	Type    string          `json:"type"`
	View    *dashboard.View `json:"view,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

var validate = validator.New()

func decodeCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, err
	}
	if err := validate.Struct(cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// dispatch applies cmd to the controller. The resulting view reaches the
// client through the controller's Changes channel.
func dispatch(ctx context.Context, c *dashboard.Controller, cmd Command) error {
	switch cmd.Type {
	case "draft":
		c.SetDraft(cmd.Text)
	case "draft_kind":
		k, err := model.ParseKind(cmd.Kind)
		if err != nil {
			return err
		}
		return c.SetDraftKind(k)
	case "create":
		return c.CreatePost(ctx)
	case "edit":
		return c.EnterEdit(cmd.ID)
	case "exit_edit":
		c.ExitEdit()
	case "edit_buffer":
		return c.SetEditBuffer(cmd.Text)
	case "update":
		return c.UpdatePost(ctx)
	case "delete":
		return c.DeletePost(ctx, cmd.ID, cmd.Confirm)
	case "search":
		c.SetSearch(cmd.Text)
	case "kind":
		f, err := grouping.ParseKindFilter(cmd.Kind)
		if err != nil {
			return err
		}
		c.SetKind(f)
	case "toggle_month":
		c.ToggleMonth(cmd.Label)
	case "toggle_diary":
		c.ToggleDiary(cmd.ID)
	}
	return nil
}
