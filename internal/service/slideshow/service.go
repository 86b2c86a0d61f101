package slideshow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"slidecast/internal/model/export"
	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/scripttools"
)

// Service 幻灯片视频服务接口，HTTP 与 CLI 都通过它驱动流程
type Service interface {
	LoadScript(ctx context.Context, raw string) (*ProjectView, error)
	Project() (*ProjectView, error)
	Lines() ([]*script.ScriptLine, error)
	ResetLine(ctx context.Context, index int) (*script.ScriptLine, error)

	SubmitCredential(ctx context.Context, credential string, budget int) (SessionInfo, error)
	Session() SessionInfo

	RunBatch(ctx context.Context) (*RunReport, error)
	BatchRunning() bool
	Status() *StatusView

	SetAudio(ctx context.Context, audio script.Audio) error
	Align(ctx context.Context, credential string) ([]script.TimelineEntry, error)
	Timeline() ([]script.TimelineEntry, error)

	Render(ctx context.Context, progress scripttools.ProgressFunc) (*scripttools.Artifact, error)
	Rendering() bool
	Video() (*scripttools.Artifact, error)

	Manifest() ([]byte, error)
	Bundle() ([]byte, error)
	Export(ctx context.Context) (*ExportResult, error)
	ExportHistory(ctx context.Context, page, pageSize int64) ([]*export.Record, int64, error)
	GetExport(ctx context.Context, exportID string) (*export.Record, error)
	ExportEnabled() bool
}

// StatusView 状态概览
type StatusView struct {
	Project   *ProjectView `json:"project,omitempty"`
	Session   SessionInfo  `json:"session"`
	Running   bool         `json:"running"`
	Rendering bool         `json:"rendering"`
}

// Deps 服务依赖
type Deps struct {
	Images    scripttools.ImageProvider
	Validator scripttools.CredentialValidator
	Alignment scripttools.AlignmentProvider
	Renderer  scripttools.Renderer
	Exporter  *Exporter
	Observer  Observer
}

// Options 服务参数
type Options struct {
	Style            string
	MaxAttempts      int
	RetryDelay       time.Duration
	MinDuration      float64
	FallbackDuration float64
	Output           scripttools.OutputConfig
}

type slideshowService struct {
	sessions   *SessionManager
	controller *Controller
	aligner    *Aligner
	renderer   scripttools.Renderer
	exporter   *Exporter
	observer   Observer
	output     scripttools.OutputConfig

	mu        sync.RWMutex
	project   *Project
	rendering atomic.Bool
}

// NewService 创建幻灯片视频服务
func NewService(deps Deps, opts Options, controllerOpts ...ControllerOption) Service {
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = NewExporter(nil, nil)
	}

	controllerOpts = append([]ControllerOption{
		WithRetryPolicy(opts.MaxAttempts, opts.RetryDelay),
		WithObserver(observer),
	}, controllerOpts...)

	return &slideshowService{
		sessions:   NewSessionManager(deps.Validator),
		controller: NewController(deps.Images, opts.Style, controllerOpts...),
		aligner:    NewAligner(deps.Alignment, scripttools.NewTimelineNormalizer(opts.MinDuration, opts.FallbackDuration)),
		renderer:   deps.Renderer,
		exporter:   exporter,
		observer:   observer,
		output:     opts.Output,
	}
}

func (s *slideshowService) current() (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.project == nil {
		return nil, apperr.NotFound("no script loaded")
	}
	return s.project, nil
}

// LoadScript 解析脚本并替换当前项目；批处理运行中拒绝
func (s *slideshowService) LoadScript(ctx context.Context, raw string) (*ProjectView, error) {
	lines, err := scripttools.ParseScript(raw)
	if err != nil {
		return nil, err
	}
	project := NewProject(lines)

	// RunBatch 在读锁内占用运行权，这里的检查和替换与之互斥
	s.mu.Lock()
	if s.controller.Running() {
		s.mu.Unlock()
		return nil, apperr.Conflict("cannot replace script while a batch is running")
	}
	s.project = project
	s.mu.Unlock()

	log.Info().Str("project_id", project.ID).Int("lines", len(lines)).Msg("script loaded")
	return project.View(), nil
}

func (s *slideshowService) Project() (*ProjectView, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return project.View(), nil
}

func (s *slideshowService) Lines() ([]*script.ScriptLine, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return project.Lines(), nil
}

// ResetLine 把一行重置为 pending；批处理运行中拒绝
func (s *slideshowService) ResetLine(ctx context.Context, index int) (*script.ScriptLine, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	if s.controller.Running() {
		return nil, apperr.Conflict("cannot reset a line while a batch is running")
	}
	line, err := project.ResetLine(index)
	if err != nil {
		return nil, err
	}
	s.observer.Publish(ctx, events.Event{Type: events.TypeLineUpdated, ProjectID: project.ID, Payload: line})
	return line, nil
}

func (s *slideshowService) SubmitCredential(ctx context.Context, credential string, budget int) (SessionInfo, error) {
	if _, err := s.sessions.Submit(ctx, credential, budget); err != nil {
		return s.sessions.Info(), err
	}
	info := s.sessions.Info()
	projectID := ""
	if project, err := s.current(); err == nil {
		projectID = project.ID
	}
	s.observer.Publish(ctx, events.Event{Type: events.TypeSessionUpdated, ProjectID: projectID, Payload: info})
	return info, nil
}

func (s *slideshowService) Session() SessionInfo {
	return s.sessions.Info()
}

// RunBatch 用当前活动会话运行一次批处理
// 项目的读取和运行权的占用在同一把读锁内完成，LoadScript 不会在两者之间替换项目
func (s *slideshowService) RunBatch(ctx context.Context) (*RunReport, error) {
	session := s.sessions.ActiveSession()

	s.mu.RLock()
	project := s.project
	if project == nil {
		s.mu.RUnlock()
		return nil, apperr.NotFound("no script loaded")
	}
	if session == nil {
		s.mu.RUnlock()
		return nil, apperr.Validation("no active credential, submit a new key and budget", nil)
	}
	if !s.controller.tryAcquire() {
		s.mu.RUnlock()
		return s.controller.alreadyRunning(project), nil
	}
	s.mu.RUnlock()

	defer s.controller.release()
	return s.controller.run(ctx, project, session)
}

func (s *slideshowService) BatchRunning() bool {
	return s.controller.Running()
}

func (s *slideshowService) Status() *StatusView {
	view := &StatusView{
		Session:   s.sessions.Info(),
		Running:   s.controller.Running(),
		Rendering: s.rendering.Load(),
	}
	if project, err := s.current(); err == nil {
		view.Project = project.View()
	}
	return view
}

func (s *slideshowService) SetAudio(ctx context.Context, audio script.Audio) error {
	project, err := s.current()
	if err != nil {
		return err
	}
	if len(audio.Data) == 0 {
		return apperr.Validation("audio file is empty", nil)
	}
	project.SetAudio(audio)
	log.Info().
		Str("project_id", project.ID).
		Str("filename", audio.Filename).
		Str("mime_type", audio.MIMEType).
		Int("bytes", len(audio.Data)).
		Msg("narration audio stored")
	return nil
}

// Align 对齐音频并保存时间轴
// credential 为空时使用当前活动会话的凭证；批处理运行中拒绝
func (s *slideshowService) Align(ctx context.Context, credential string) ([]script.TimelineEntry, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	if s.controller.Running() {
		return nil, apperr.Conflict("cannot align while a batch is running")
	}
	audio, ok := project.Audio()
	if !ok {
		return nil, apperr.Validation("narration audio is required", nil)
	}
	if credential == "" {
		if session := s.sessions.ActiveSession(); session != nil {
			credential = session.Credential()
		}
	}

	timeline, err := s.aligner.Align(ctx, credential, project.Lines(), audio)
	if err != nil {
		return nil, err
	}
	project.SetTimeline(timeline)
	s.observer.Publish(ctx, events.Event{Type: events.TypeAligned, ProjectID: project.ID, Payload: timeline})
	return timeline, nil
}

func (s *slideshowService) Timeline() ([]script.TimelineEntry, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return project.Timeline(), nil
}

// RenderProgress 渲染进度事件载荷
type RenderProgress struct {
	Percent int `json:"percent"`
}

// Render 渲染视频；同一时间只允许一个渲染
func (s *slideshowService) Render(ctx context.Context, progress scripttools.ProgressFunc) (*scripttools.Artifact, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	if s.renderer == nil {
		return nil, apperr.Render("renderer is not configured", nil)
	}
	timeline := project.Timeline()
	if len(timeline) == 0 {
		return nil, apperr.Validation("align the narration audio before rendering", nil)
	}
	audio, ok := project.Audio()
	if !ok {
		return nil, apperr.Validation("narration audio is required", nil)
	}
	if !s.rendering.CompareAndSwap(false, true) {
		return nil, apperr.Conflict("a render is already running")
	}
	defer s.rendering.Store(false)

	report := scripttools.MonotonicProgress(func(percent int) {
		s.observer.Publish(ctx, events.Event{
			Type:      events.TypeRenderProgress,
			ProjectID: project.ID,
			Payload:   RenderProgress{Percent: percent},
		})
		if progress != nil {
			progress(percent)
		}
	})

	artifact, err := s.renderer.Render(ctx, scripttools.RenderRequest{
		Timeline: timeline,
		Audio:    audio,
		Output:   s.output,
	}, report)
	if err != nil {
		s.observer.Publish(ctx, events.Event{Type: events.TypeError, ProjectID: project.ID, Payload: err.Error()})
		return nil, apperr.Wrap(err, "render failed", apperr.KindRender)
	}
	report(100)

	project.SetVideo(artifact)
	s.observer.Publish(ctx, events.Event{
		Type:      events.TypeRenderFinished,
		ProjectID: project.ID,
		Payload: map[string]any{
			"filename": artifact.Filename,
			"bytes":    len(artifact.Data),
			"duration": artifact.Duration,
		},
	})
	return artifact, nil
}

func (s *slideshowService) Rendering() bool {
	return s.rendering.Load()
}

func (s *slideshowService) Video() (*scripttools.Artifact, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	video := project.Video()
	if video == nil {
		return nil, apperr.NotFound("no rendered video")
	}
	return video, nil
}

func (s *slideshowService) Manifest() ([]byte, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.exporter.Manifest(project.Lines())
}

func (s *slideshowService) Bundle() ([]byte, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.exporter.Bundle(project.Lines())
}

func (s *slideshowService) Export(ctx context.Context) (*ExportResult, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, project.ID, project.Lines(), project.Video())
}

func (s *slideshowService) ExportHistory(ctx context.Context, page, pageSize int64) ([]*export.Record, int64, error) {
	project, err := s.current()
	if err != nil {
		return nil, 0, err
	}
	return s.exporter.History(ctx, project.ID, page, pageSize)
}

func (s *slideshowService) GetExport(ctx context.Context, exportID string) (*export.Record, error) {
	project, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.exporter.Find(ctx, project.ID, exportID)
}

func (s *slideshowService) ExportEnabled() bool {
	return s.exporter.Enabled()
}
