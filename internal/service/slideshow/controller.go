package slideshow

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/id"
	"slidecast/internal/pkg/scripttools"
)

const (
	// DefaultMaxAttempts 单行最多尝试次数
	DefaultMaxAttempts = 3
	// DefaultRetryDelay 两次尝试之间的等待
	DefaultRetryDelay = 1500 * time.Millisecond
)

// Outcome 批处理结束原因
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"        // 所有行都已处理
	OutcomeBudgetReached   Outcome = "budget_reached"   // 本次预算用完，仍有待生成的行
	OutcomeQuotaExhausted  Outcome = "quota_exhausted"  // 服务端配额耗尽
	OutcomeSessionReplaced Outcome = "session_replaced" // 运行中凭证被替换
	OutcomeAlreadyRunning  Outcome = "already_running"  // 已有批处理在运行
	OutcomeCanceled        Outcome = "canceled"         // 被取消，当前行已回滚
)

var outcomeMessages = map[Outcome]string{
	OutcomeCompleted:       "all lines processed",
	OutcomeBudgetReached:   "batch limit reached",
	OutcomeQuotaExhausted:  "quota exhausted",
	OutcomeSessionReplaced: "credential replaced",
	OutcomeAlreadyRunning:  "a batch is already running",
	OutcomeCanceled:        "batch canceled",
}

// RunReport 批处理结果
type RunReport struct {
	RunID           string              `json:"run_id,omitempty"`
	Outcome         Outcome             `json:"outcome"`
	Message         string              `json:"message"`
	SessionSeq      int                 `json:"session_seq,omitempty"`
	Budget          int                 `json:"budget,omitempty"`
	Consumed        int                 `json:"consumed,omitempty"`
	Generated       int                 `json:"generated"`
	Failed          int                 `json:"failed"`
	Counts          script.StatusCounts `json:"counts"`
	NeedsCredential bool                `json:"needs_credential"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`
}

// Observer 接收进度事件，events.Hub 满足该接口
type Observer interface {
	Publish(ctx context.Context, event events.Event)
}

type nopObserver struct{}

func (nopObserver) Publish(context.Context, events.Event) {}

// Sleeper 可被取消的等待
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Controller 批处理控制器
// 按文档顺序逐行生成图片，受会话预算约束；同一时间只允许一个运行
type Controller struct {
	images      scripttools.ImageProvider
	prompts     *scripttools.ImagePromptBuilder
	maxAttempts int
	retryDelay  time.Duration
	sleep       Sleeper
	nowFn       func() time.Time
	observer    Observer
	running     atomic.Bool
}

// ControllerOption 控制器选项
type ControllerOption func(*Controller)

// WithRetryPolicy 设置重试策略，非正值使用默认值
func WithRetryPolicy(maxAttempts int, delay time.Duration) ControllerOption {
	return func(c *Controller) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithSleeper 替换等待实现（测试中跳过真实等待）
func WithSleeper(sleep Sleeper) ControllerOption {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithClock 替换时间来源
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.nowFn = now
		}
	}
}

// WithObserver 设置事件观察者
func WithObserver(observer Observer) ControllerOption {
	return func(c *Controller) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// NewController 创建批处理控制器
func NewController(images scripttools.ImageProvider, style string, opts ...ControllerOption) *Controller {
	c := &Controller{
		images:      images,
		prompts:     scripttools.NewImagePromptBuilder(style),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       contextSleep,
		nowFn:       time.Now,
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Running 是否有批处理在运行
func (c *Controller) Running() bool {
	return c.running.Load()
}

type lineOutcome int

const (
	lineCompleted lineOutcome = iota
	lineFailed
	lineQuotaExhausted
)

// Run 运行一次批处理
//
// 从第一个 pending/failed 行开始按顺序处理，直到预算用完、配额耗尽或没有剩余行。
// 配额耗尽时当前行回滚为 pending，其余已完成的行保持不变。
// ctx 取消时当前行回滚为 pending 并返回 ctx 的错误。
func (c *Controller) Run(ctx context.Context, project *Project, session *Session) (*RunReport, error) {
	if !c.tryAcquire() {
		return c.alreadyRunning(project), nil
	}
	defer c.release()
	return c.run(ctx, project, session)
}

// tryAcquire 占用运行权；已被占用时返回 false
func (c *Controller) tryAcquire() bool {
	return c.running.CompareAndSwap(false, true)
}

func (c *Controller) release() {
	c.running.Store(false)
}

func (c *Controller) alreadyRunning(project *Project) *RunReport {
	return &RunReport{
		Outcome:   OutcomeAlreadyRunning,
		Message:   outcomeMessages[OutcomeAlreadyRunning],
		Counts:    project.Counts(),
		StartedAt: c.nowFn(),
	}
}

// run 执行批处理，调用方必须已持有运行权
func (c *Controller) run(ctx context.Context, project *Project, session *Session) (*RunReport, error) {
	if session == nil || !session.Active() {
		return nil, apperr.Validation("no active credential", nil)
	}

	report := &RunReport{
		RunID:      id.New(),
		SessionSeq: session.Sequence(),
		StartedAt:  c.nowFn(),
	}
	logger := log.With().
		Str("project_id", project.ID).
		Str("run_id", report.RunID).
		Int("session_seq", report.SessionSeq).
		Logger()

	logger.Info().Int("remaining", session.Remaining()).Msg("batch started")
	c.publish(ctx, project, events.TypeBatchStarted, report)

	start := project.FirstNeedingWork()
	if start >= 0 {
		for i := start; i < project.Len(); i++ {
			if session.Remaining() == 0 {
				break
			}
			line, err := project.Line(i)
			if err != nil {
				return nil, err
			}
			if !line.Status.NeedsWork() {
				continue
			}

			outcome, err := c.processLine(ctx, project, session, i)
			if err != nil {
				logger.Warn().Err(err).Str("line_id", line.ID).Msg("batch interrupted")
				c.finish(context.WithoutCancel(ctx), project, session, report, OutcomeCanceled)
				return report, err
			}
			switch outcome {
			case lineCompleted:
				report.Generated++
			case lineFailed:
				report.Failed++
			case lineQuotaExhausted:
				session.Exhaust(ExhaustQuota)
				logger.Warn().Str("line_id", line.ID).Msg("quota exhausted, waiting for a new credential")
				return c.finish(ctx, project, session, report, OutcomeQuotaExhausted), nil
			}
		}
	}

	counts := project.Counts()
	switch {
	case counts.Pending == 0:
		return c.finish(ctx, project, session, report, OutcomeCompleted), nil
	case session.State() == SessionReplaced:
		return c.finish(ctx, project, session, report, OutcomeSessionReplaced), nil
	default:
		session.Exhaust(ExhaustBudget)
		return c.finish(ctx, project, session, report, OutcomeBudgetReached), nil
	}
}

// processLine 生成单行图片，最多尝试 maxAttempts 次
// 只有 ctx 取消时返回错误
func (c *Controller) processLine(ctx context.Context, project *Project, session *Session, index int) (lineOutcome, error) {
	line := project.mutate(index, func(l *script.ScriptLine) { l.MarkGenerating() })
	c.publish(ctx, project, events.TypeLineUpdated, line)

	req := scripttools.ImageRequest{
		Credential: session.Credential(),
		LineID:     line.ID,
		Narration:  line.Narration,
		Prompt:     c.prompts.BuildCompletePrompt(line.Narration, line.Prompt),
		Style:      c.prompts.Style(),
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		image, err := c.images.GenerateImage(ctx, req)
		if err == nil && len(image) == 0 {
			err = apperr.Transient("empty image payload", nil)
		}
		if err == nil {
			filename := scripttools.SanitizeFilename(line.Narration, line.ID)
			now := c.nowFn()
			updated := project.mutate(index, func(l *script.ScriptLine) {
				l.MarkCompleted(image, filename, session.Sequence(), now)
			})
			session.Consume()
			c.publish(ctx, project, events.TypeLineUpdated, updated)
			c.publish(ctx, project, events.TypeSessionUpdated, session.Info())
			return lineCompleted, nil
		}

		if apperr.IsQuotaExhausted(err) {
			c.rollback(ctx, project, index)
			return lineQuotaExhausted, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) {
			c.rollback(context.WithoutCancel(ctx), project, index)
			if ctxErr == nil {
				ctxErr = err
			}
			return 0, ctxErr
		}

		lastErr = err
		log.Warn().Err(err).
			Str("line_id", line.ID).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Msg("image generation failed")

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				c.rollback(context.WithoutCancel(ctx), project, index)
				return 0, err
			}
		}
	}

	failed := project.mutate(index, func(l *script.ScriptLine) { l.MarkFailed(lastErr.Error()) })
	c.publish(ctx, project, events.TypeLineUpdated, failed)
	return lineFailed, nil
}

func (c *Controller) rollback(ctx context.Context, project *Project, index int) {
	line := project.mutate(index, func(l *script.ScriptLine) { l.ResetToPending() })
	c.publish(ctx, project, events.TypeLineUpdated, line)
}

func (c *Controller) finish(ctx context.Context, project *Project, session *Session, report *RunReport, outcome Outcome) *RunReport {
	info := session.Info()
	report.Outcome = outcome
	report.Message = outcomeMessages[outcome]
	report.Budget = info.Budget
	report.Consumed = info.Consumed
	report.Counts = project.Counts()
	report.NeedsCredential = info.State != SessionActive && report.Counts.Pending+report.Counts.Failed > 0
	report.FinishedAt = c.nowFn()

	project.setLastReport(report)
	c.publish(ctx, project, events.TypeSessionUpdated, info)
	c.publish(ctx, project, events.TypeBatchFinished, report)

	log.Info().
		Str("project_id", project.ID).
		Str("run_id", report.RunID).
		Str("outcome", string(outcome)).
		Int("generated", report.Generated).
		Int("failed", report.Failed).
		Int("pending", report.Counts.Pending).
		Msg("batch finished")
	return report
}

func (c *Controller) publish(ctx context.Context, project *Project, eventType events.Type, payload any) {
	c.observer.Publish(ctx, events.Event{
		Type:      eventType,
		ProjectID: project.ID,
		Payload:   payload,
		Time:      c.nowFn(),
	})
}
