package usecase

import (
	"context"
	"fmt"
	"strings"

	"wechat-gpt-bridge/internal/biz/repo"
	"wechat-gpt-bridge/internal/conf"
)

// command is one recognized slash-command: a prefix matcher, a handler
// and a help line.
type command struct {
	prefix string
	help   string
	run    func(ctx context.Context, run *Run, arg string) error
}

// CommandRegistry is the fixed, ordered set of recognized slash-commands.
type CommandRegistry struct {
	conv     repo.ConversationRepo
	ai       repo.AIRepo
	replies  *conf.RepliesConfig
	commands []command
}

// NewCommandRegistry creates the registry. The /image command is only
// registered when image generation is enabled.
func NewCommandRegistry(conv repo.ConversationRepo, ai repo.AIRepo, replies *conf.RepliesConfig, enableImage bool) *CommandRegistry {
	r := &CommandRegistry{conv: conv, ai: ai, replies: replies}

	r.commands = append(r.commands, command{
		prefix: "/help",
		help:   "/help 查看全部指令",
		run:    r.runHelp,
	})
	r.commands = append(r.commands, command{
		prefix: "/init",
		help:   "/init role|content <值> 设置专属的系统提示词",
		run:    r.runInit,
	})
	if enableImage {
		r.commands = append(r.commands, command{
			prefix: "/image",
			help:   "/image <描述> 生成一张图片",
			run:    r.runImage,
		})
	}
	return r
}

// Dispatch runs the first command whose prefix matches content. It
// reports whether a command claimed the message.
func (r *CommandRegistry) Dispatch(ctx context.Context, run *Run, content string) (bool, error) {
	for _, cmd := range r.commands {
		if content == cmd.prefix || strings.HasPrefix(content, cmd.prefix+" ") {
			arg := strings.TrimSpace(strings.TrimPrefix(content, cmd.prefix))
			return true, cmd.run(ctx, run, arg)
		}
	}
	return false, nil
}

// runHelp renders all help lines joined by blank lines.
func (r *CommandRegistry) runHelp(ctx context.Context, run *Run, _ string) error {
	lines := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		lines = append(lines, cmd.help)
	}
	return run.Platform.SendText(ctx, run.UserID(), strings.Join(lines, "\n\n"))
}

// runInit updates one field of the user's system-prompt override. A bad
// field replies failure without touching storage.
func (r *CommandRegistry) runInit(ctx context.Context, run *Run, arg string) error {
	parts := strings.SplitN(arg, " ", 2)
	if len(parts) < 2 || (parts[0] != "role" && parts[0] != "content") || strings.TrimSpace(parts[1]) == "" {
		return run.Platform.SendText(ctx, run.UserID(), r.replies.InitFailure)
	}
	field, value := parts[0], strings.TrimSpace(parts[1])

	if err := r.conv.UpsertInit(ctx, run.UserID(), field, value); err != nil {
		fmt.Printf("[Command] %s: upsert init %s: %v\n", run.ID, field, err)
		return run.Platform.SendText(ctx, run.UserID(), r.replies.InitFailure)
	}
	return run.Platform.SendText(ctx, run.UserID(), r.replies.InitSuccess)
}

// runImage generates an image for the prompt. Persisting the audit
// record, sending the URL and uploading+sending the image are three
// independent best-effort steps; a failure in one does not roll back the
// others, but each is logged on its own.
func (r *CommandRegistry) runImage(ctx context.Context, run *Run, prompt string) error {
	if prompt == "" {
		return run.Platform.SendText(ctx, run.UserID(), r.replies.ImageUsage)
	}

	url, providerErr, err := r.ai.GenerateImage(ctx, prompt)
	if err != nil {
		fmt.Printf("[Command] %s: image generation: %v\n", run.ID, err)
		return run.Platform.SendText(ctx, run.UserID(), r.replies.AIFailure)
	}
	if providerErr != "" {
		// Relay the provider's own error text as a system message.
		return run.Platform.SendText(ctx, run.UserID(), providerErr)
	}

	if err := r.conv.SaveImage(ctx, run.UserID(), prompt, url); err != nil {
		fmt.Printf("[Command] %s: save image record: %v\n", run.ID, err)
	}
	if err := run.Platform.SendText(ctx, run.UserID(), fmt.Sprintf(r.replies.ImageResult, url)); err != nil {
		fmt.Printf("[Command] %s: send image url: %v\n", run.ID, err)
	}

	mediaID, err := run.Platform.UploadImage(ctx, url)
	if err != nil {
		fmt.Printf("[Command] %s: upload image: %v\n", run.ID, err)
		return nil
	}
	if err := run.Platform.SendImage(ctx, run.UserID(), mediaID); err != nil {
		fmt.Printf("[Command] %s: send image: %v\n", run.ID, err)
	}
	return nil
}
