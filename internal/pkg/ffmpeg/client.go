package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/scripttools"
)

// 进度分配：分段编码占 0-80，合并 85，混音 95，完成 100 由调用方上报
const (
	segmentProgressSpan = 80
	concatProgress      = 85
	muxProgress         = 95
)

// OutputFilename 渲染产物文件名
const OutputFilename = "slideshow.mp4"

// Config FFmpeg 配置
type Config struct {
	FFmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	FFprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
	WorkDir     string // 临时工作目录（默认: 系统临时目录）
}

// CommandRunner 执行外部命令
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client FFmpeg 客户端
// 用于封装 FFmpeg 命令调用，实现 scripttools.Renderer
type Client struct {
	ffmpegPath  string
	ffprobePath string
	workDir     string
	run         CommandRunner
}

var _ scripttools.Renderer = (*Client)(nil)

// NewClient 创建 FFmpeg 客户端
// 配置为空时依次读取环境变量 FFMPEG_PATH / FFPROBE_PATH
func NewClient(cfg Config) *Client {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = os.Getenv("FFMPEG_PATH")
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = os.Getenv("FFPROBE_PATH")
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		workDir:     cfg.WorkDir,
		run:         runCommand,
	}
}

// WithRunner 替换命令执行器（测试用）
func (c *Client) WithRunner(run CommandRunner) *Client {
	c.run = run
	return c
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration float64 // 时长（秒）
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	// ffprobe -v error -show_entries format=duration -of json audio.mp3
	output, err := c.run(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse audio duration %q: %w", probe.Format.Duration, err)
	}
	return &AudioInfo{Duration: duration}, nil
}

// SegmentDurations 每张图片的展示时长
// 第一张从 0 开始（覆盖开头的静音），每张持续到下一条的开始，最后一张到自己的结束时间
func SegmentDurations(timeline []script.TimelineEntry) []float64 {
	durations := make([]float64, len(timeline))
	for i, entry := range timeline {
		start := entry.Start
		if i == 0 {
			start = 0
		}
		end := entry.End
		if i+1 < len(timeline) {
			end = timeline[i+1].Start
		}
		durations[i] = end - start
	}
	return durations
}

// Render 渲染幻灯片视频
// 每条时间轴生成一个带淡入的静态图片片段，合并后混入旁白音频，输出 H.264/AAC mp4
func (c *Client) Render(ctx context.Context, req scripttools.RenderRequest, progress scripttools.ProgressFunc) (*scripttools.Artifact, error) {
	if len(req.Timeline) == 0 {
		return nil, fmt.Errorf("timeline is empty")
	}
	if len(req.Audio.Data) == 0 {
		return nil, fmt.Errorf("audio is empty")
	}
	if progress == nil {
		progress = func(int) {}
	}
	out := req.Output

	workDir, err := os.MkdirTemp(c.workDir, "render-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath := filepath.Join(workDir, "narration"+mimetype.Detect(req.Audio.Data).Extension())
	if err := os.WriteFile(audioPath, req.Audio.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}

	durations := SegmentDurations(req.Timeline)
	segments := make([]string, 0, len(req.Timeline))
	for i, entry := range req.Timeline {
		imagePath := filepath.Join(workDir, fmt.Sprintf("image_%04d%s", i, mimetype.Detect(entry.Image).Extension()))
		if err := os.WriteFile(imagePath, entry.Image, 0o644); err != nil {
			return nil, fmt.Errorf("write image %s: %w", entry.LineID, err)
		}

		segmentPath := filepath.Join(workDir, fmt.Sprintf("segment_%04d.mp4", i))
		if err := c.createSegment(ctx, imagePath, segmentPath, durations[i], out); err != nil {
			return nil, fmt.Errorf("segment %s: %w", entry.LineID, err)
		}
		segments = append(segments, segmentPath)
		progress((i + 1) * segmentProgressSpan / len(req.Timeline))
	}

	videoPath := filepath.Join(workDir, "video.mp4")
	if err := c.concat(ctx, segments, videoPath); err != nil {
		return nil, err
	}
	progress(concatProgress)

	outputPath := filepath.Join(workDir, OutputFilename)
	if err := c.mux(ctx, videoPath, audioPath, outputPath); err != nil {
		return nil, err
	}
	progress(muxProgress)

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	duration := scripttools.TimelineDuration(req.Timeline)
	log.Info().
		Int("segments", len(segments)).
		Float64("duration", duration).
		Int("bytes", len(data)).
		Msg("幻灯片视频渲染成功")

	return &scripttools.Artifact{
		Filename:    OutputFilename,
		ContentType: "video/mp4",
		Data:        data,
		Duration:    duration,
	}, nil
}

// createSegment 从单张图片创建带淡入的视频片段
func (c *Client) createSegment(ctx context.Context, imagePath, outputPath string, duration float64, out scripttools.OutputConfig) error {
	filters := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		out.Width, out.Height, out.Width, out.Height)
	if fade := fadeDuration(out.FadeIn, duration); fade > 0 {
		filters += fmt.Sprintf(",fade=t=in:st=0:d=%.3f", fade)
	}
	filters += ",format=yuv420p"

	// ffmpeg -y -loop 1 -i image.png -t duration -vf "scale=...,pad=...,fade=..." -r fps -c:v libx264 segment.mp4
	_, err := c.run(ctx, c.ffmpegPath,
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", filters,
		"-r", strconv.Itoa(out.FPS),
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		outputPath,
	)
	return err
}

// fadeDuration 淡入不超过片段时长的一半
func fadeDuration(fadeIn, duration float64) float64 {
	if fadeIn <= 0 || duration <= 0 {
		return 0
	}
	if fadeIn > duration/2 {
		return duration / 2
	}
	return fadeIn
}

// concat 合并多个视频文件
// 使用 concat demuxer（需要创建 concat list 文件）
func (c *Client) concat(ctx context.Context, videoPaths []string, outputPath string) error {
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	var list strings.Builder
	for _, videoPath := range videoPaths {
		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			return fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", absPath)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("create concat list file: %w", err)
	}

	// ffmpeg -f concat -safe 0 -i concat_list.txt -c copy output.mp4
	if _, err := c.run(ctx, c.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// mux 混入旁白音频
func (c *Client) mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	if _, err := c.run(ctx, c.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		outputPath,
	); err != nil {
		return fmt.Errorf("ffmpeg mux audio: %w", err)
	}
	return nil
}
