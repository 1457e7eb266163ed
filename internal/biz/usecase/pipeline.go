package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"wechat-gpt-bridge/internal/biz/domain"
	"wechat-gpt-bridge/internal/biz/repo"
	"wechat-gpt-bridge/internal/conf"
)

// Run is the per-message pipeline state: a correlation ID for logs, the
// inbound message, and a platform view whose access token is read from
// the cache at most once for the whole run.
type Run struct {
	ID       string
	Msg      domain.InboundMessage
	Platform repo.PlatformRepo
}

// UserID returns the partition key of the run.
func (r *Run) UserID() string {
	return r.Msg.UserID
}

// stage is one step of the decision chain. The first stage that claims
// the message ends the pipeline for that message.
type stage struct {
	name string
	run  func(ctx context.Context, run *Run) (claimed bool, err error)
}

// ReplyPipeline classifies one inbound message and produces the reply:
// platform events and unsupported content first, then slash-commands,
// then the AI turn as the terminal fallback.
type ReplyPipeline struct {
	conv     repo.ConversationRepo
	platform repo.PlatformRepo
	ai       repo.AIRepo
	commands *CommandRegistry
	replies  *conf.RepliesConfig
	cfg      conf.PipelineConfig
}

// NewReplyPipeline creates a new reply pipeline.
func NewReplyPipeline(
	conv repo.ConversationRepo,
	platform repo.PlatformRepo,
	ai repo.AIRepo,
	commands *CommandRegistry,
	replies *conf.RepliesConfig,
	cfg conf.PipelineConfig,
) *ReplyPipeline {
	return &ReplyPipeline{
		conv:     conv,
		platform: platform,
		ai:       ai,
		commands: commands,
		replies:  replies,
		cfg:      cfg,
	}
}

func (p *ReplyPipeline) stages() []stage {
	return []stage{
		{"event", p.handleEventOrUnsupported},
		{"command", p.handleCommand},
		{"chat", p.handleChat},
	}
}

// Handle runs the decision chain for one inbound message. Stages are
// tried in fixed order with first-claim-wins; no stage is retried within
// one run. Failures degrade to logs or a user-visible message, never to a
// process crash.
func (p *ReplyPipeline) Handle(ctx context.Context, msg domain.InboundMessage) {
	run := &Run{
		ID:       uuid.NewString()[:8],
		Msg:      msg,
		Platform: p.platform.WithTokenScope(),
	}
	for _, st := range p.stages() {
		claimed, err := st.run(ctx, run)
		if err != nil {
			fmt.Printf("[Pipeline] %s: stage %s: %v\n", run.ID, st.name, err)
		}
		if claimed {
			return
		}
	}
}

// handleEventOrUnsupported claims platform events and message kinds the
// bot cannot reply to. Text falls through to the later stages.
func (p *ReplyPipeline) handleEventOrUnsupported(ctx context.Context, run *Run) (bool, error) {
	switch run.Msg.Kind {
	case domain.KindEvent:
		if run.Msg.EventName == domain.EventSubscribe {
			return true, run.Platform.SendText(ctx, run.UserID(), p.replies.Welcome)
		}
		// Other platform events carry nothing to reply to.
		return true, nil
	case domain.KindOther:
		return true, run.Platform.SendText(ctx, run.UserID(), p.replies.Unsupported)
	default:
		return false, nil
	}
}

// handleCommand dispatches text that matches a registered slash-command.
func (p *ReplyPipeline) handleCommand(ctx context.Context, run *Run) (bool, error) {
	if !run.Msg.IsText() {
		return false, nil
	}
	return p.commands.Dispatch(ctx, run, run.Msg.Content)
}

// handleChat is the terminal fallback: an AI turn with the user's recent
// context. It always claims.
func (p *ReplyPipeline) handleChat(ctx context.Context, run *Run) (bool, error) {
	userID := run.UserID()

	// Typing indicator scoped to this run; stopped on every exit path.
	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	run.Platform.StartTyping(typingCtx, userID)

	// Fetch the init override and the context window concurrently.
	var (
		settings *domain.UserSettings
		history  []domain.ChatTurn
		initErr  error
		histErr  error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		settings, initErr = p.conv.GetInit(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		history, histErr = p.conv.RecentTurns(ctx, userID, p.cfg.HistoryWindow, p.cfg.HistoryLimit)
	}()
	wg.Wait()
	if initErr != nil {
		fmt.Printf("[Pipeline] %s: get init: %v\n", run.ID, initErr)
		settings = nil
	}
	if histErr != nil {
		fmt.Printf("[Pipeline] %s: recent turns: %v\n", run.ID, histErr)
		history = nil
	}

	lead := domain.ChatTurn{Role: domain.RoleSystem, Content: p.replies.Persona}
	if settings != nil {
		if settings.InitRole != "" {
			lead.Role = settings.InitRole
		}
		if settings.InitContent != "" {
			lead.Content = settings.InitContent
		}
	}

	turns := make([]domain.ChatTurn, 0, len(history)+2)
	turns = append(turns, lead)
	turns = append(turns, history...)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleUser, Content: run.Msg.Content})

	cancelWatchdog := run.Platform.Watchdog(userID, p.replies.SlowNotice, p.cfg.WatchdogDelay)
	reply, err := p.ai.ChatCompletion(ctx, turns)
	cancelWatchdog()
	if err != nil {
		if sendErr := run.Platform.SendText(ctx, userID, p.replies.AIFailure); sendErr != nil {
			fmt.Printf("[Pipeline] %s: send failure notice: %v\n", run.ID, sendErr)
		}
		return true, err
	}
	stopTyping()

	// Persist the exchange and deliver the reply in parallel.
	assistantAt := time.Now()
	var appendErr, sendErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		appendErr = p.conv.AppendExchange(ctx, userID, run.Msg.Content, run.Msg.CreatedAt, reply, assistantAt)
	}()
	go func() {
		defer wg.Done()
		sendErr = run.Platform.SendText(ctx, userID, reply)
	}()
	wg.Wait()
	if appendErr != nil {
		fmt.Printf("[Pipeline] %s: append exchange: %v\n", run.ID, appendErr)
	}
	if sendErr != nil {
		fmt.Printf("[Pipeline] %s: send reply: %v\n", run.ID, sendErr)
	}
	return true, nil
}
