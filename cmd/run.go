package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/ffmpeg"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/service/slideshow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline interactively in the terminal",
	Long: `Load a script, prompt for an image API key and budget, and generate images
batch by batch. When a key's budget or quota runs out you are asked for the next
key. Optionally align a narration recording, render the video and export.`,
	RunE: runPipeline,
}

var runOpts struct {
	scriptPath string
	audioPath  string
	outputDir  string
	render     bool
	export     bool
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.StringVarP(&runOpts.scriptPath, "script", "s", "", "script file, one \"narration|prompt\" per line (required)")
	flags.StringVarP(&runOpts.audioPath, "audio", "a", "", "narration audio to align against")
	flags.StringVarP(&runOpts.outputDir, "output", "o", "./output", "directory for manifest, bundle and video")
	flags.BoolVar(&runOpts.render, "render", false, "render the video after alignment (requires --audio)")
	flags.BoolVar(&runOpts.export, "export", false, "upload results to the configured storage")
	_ = runCmd.MarkFlagRequired("script")
}

var errStopped = errors.New("stopped by operator")

// console 交互式输入输出
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ask 输出提示并读取一行；输入结束时返回 io.EOF
func (c *console) ask(prompt string) (string, error) {
	c.printf("%s", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) confirm(prompt string) bool {
	answer, err := c.ask(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// promptSession 循环读取凭证和预算直到校验通过；空凭证表示停止
func promptSession(ctx context.Context, svc slideshow.Service, con *console) (slideshow.SessionInfo, error) {
	for {
		key, err := con.ask("API key (empty to stop): ")
		if err != nil {
			return slideshow.SessionInfo{}, err
		}
		if key == "" {
			return slideshow.SessionInfo{}, errStopped
		}

		raw, err := con.ask("Budget (images for this key): ")
		if err != nil {
			return slideshow.SessionInfo{}, err
		}
		budget, err := slideshow.ParseBudget(raw)
		if err != nil {
			con.printf("  %v\n", err)
			continue
		}

		con.printf("  validating %s ...\n", slideshow.MaskCredential(key))
		info, err := svc.SubmitCredential(ctx, key, budget)
		if err != nil {
			if ctx.Err() != nil {
				return slideshow.SessionInfo{}, ctx.Err()
			}
			con.printf("  %v\n", err)
			continue
		}
		con.printf("  accepted %s, batch #%d, budget %d\n", info.MaskedKey, info.Sequence, info.Budget)
		return info, nil
	}
}

// generateAll 反复运行批处理，直到所有行完成或操作者停止
func generateAll(ctx context.Context, svc slideshow.Service, con *console) error {
	for {
		status := svc.Status()
		counts := status.Project.Counts
		if counts.Pending+counts.Failed == 0 {
			return nil
		}

		if status.Session.State != slideshow.SessionActive || status.Session.Remaining == 0 {
			con.printf("\n%d line(s) still need images.\n", counts.Pending+counts.Failed)
			if _, err := promptSession(ctx, svc, con); err != nil {
				if errors.Is(err, errStopped) || errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}

		report, err := svc.RunBatch(ctx)
		if err != nil {
			if report != nil && report.Outcome == slideshow.OutcomeCanceled {
				printReport(con, report)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			con.printf("  %v\n", err)
			continue
		}
		printReport(con, report)

		if report.Outcome == slideshow.OutcomeCompleted {
			if report.Counts.Failed == 0 || !con.confirm(fmt.Sprintf("%d line(s) failed. Retry them?", report.Counts.Failed)) {
				return nil
			}
		}
	}
}

func printReport(con *console, report *slideshow.RunReport) {
	con.printf("\n%s (batch #%d: %d generated, %d failed)\n",
		report.Message, report.SessionSeq, report.Generated, report.Failed)
	con.printf("%s\n", renderTable(
		[]string{"Completed", "Pending", "Failed", "Total"},
		[][]string{{
			strconv.Itoa(report.Counts.Completed),
			strconv.Itoa(report.Counts.Pending),
			strconv.Itoa(report.Counts.Failed),
			strconv.Itoa(report.Counts.Total),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
}

func printLines(con *console, lines []*script.ScriptLine) {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		batch := ""
		if line.Batch > 0 {
			batch = strconv.Itoa(line.Batch)
		}
		rows = append(rows, []string{strconv.Itoa(line.Index), line.Status.String(), line.Filename, batch, line.Error})
	}
	con.printf("%s\n", renderTable(
		[]string{"#", "Status", "File", "Batch", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

// alignWithPrompt 对齐音频；会话失效时请求一个用于对齐的凭证，同步失败可重试
func alignWithPrompt(ctx context.Context, svc slideshow.Service, con *console) ([]script.TimelineEntry, error) {
	credential := ""
	if svc.Session().State != slideshow.SessionActive {
		key, err := con.ask("API key for alignment: ")
		if err != nil {
			return nil, err
		}
		credential = key
	}
	for {
		timeline, err := svc.Align(ctx, credential)
		if err == nil {
			return timeline, nil
		}
		if !apperr.Is(err, apperr.KindSync) || !con.confirm(fmt.Sprintf("Alignment failed: %v. Retry?", err)) {
			return nil, err
		}
	}
}

func writeOutput(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Info().Str("path", path).Str("size", humanize.Bytes(uint64(len(data)))).Msg("output written")
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// 日志输出到 stderr，避免和交互提示混在一起
	if err := logger.InitWithWriter(&cfg.Log, os.Stderr); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.ValidatePipeline(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if runOpts.render && runOpts.audioPath == "" {
		return errors.New("--render requires --audio")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, renderer, err := buildService(ctx, cfg, nil, nil)
	if err != nil {
		return err
	}
	con := newConsole(os.Stdin, cmd.OutOrStdout())

	raw, err := os.ReadFile(runOpts.scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	view, err := svc.LoadScript(ctx, string(raw))
	if err != nil {
		return err
	}
	con.printf("Loaded %d line(s) from %s\n", view.Counts.Total, runOpts.scriptPath)

	if err := generateAll(ctx, svc, con); err != nil {
		return err
	}

	lines, err := svc.Lines()
	if err != nil {
		return err
	}
	printLines(con, lines)

	if err := os.MkdirAll(runOpts.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	manifest, err := svc.Manifest()
	if err != nil {
		return err
	}
	if err := writeOutput(runOpts.outputDir, slideshow.ManifestFilename, manifest); err != nil {
		return err
	}
	bundle, err := svc.Bundle()
	if err != nil {
		return err
	}
	if err := writeOutput(runOpts.outputDir, slideshow.BundleFilename, bundle); err != nil {
		return err
	}

	if runOpts.audioPath != "" {
		if err := alignAndRender(ctx, svc, renderer, con); err != nil {
			return err
		}
	}

	if runOpts.export {
		result, err := svc.Export(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(result.Artifacts))
		for _, a := range result.Artifacts {
			rows = append(rows, []string{a.Name, humanize.Bytes(uint64(a.Size)), a.URL})
		}
		con.printf("\nExport %s\n%s\n", result.ExportID, renderTable(
			[]string{"Artifact", "Size", "URL"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft},
		))
	}
	return nil
}

func alignAndRender(ctx context.Context, svc slideshow.Service, renderer *ffmpeg.Client, con *console) error {
	data, err := os.ReadFile(runOpts.audioPath)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	audio := script.Audio{
		Filename: filepath.Base(runOpts.audioPath),
		MIMEType: mimetype.Detect(data).String(),
		Data:     data,
	}
	if err := svc.SetAudio(ctx, audio); err != nil {
		return err
	}

	timeline, err := alignWithPrompt(ctx, svc, con)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(timeline))
	for _, e := range timeline {
		rows = append(rows, []string{e.ImageName, fmt.Sprintf("%.2f", e.Start), fmt.Sprintf("%.2f", e.End)})
	}
	con.printf("\nTimeline\n%s\n", renderTable(
		[]string{"Image", "Start", "End"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))

	if info, err := renderer.GetAudioInfo(ctx, runOpts.audioPath); err == nil && len(timeline) > 0 {
		end := timeline[len(timeline)-1].End
		if end > info.Duration {
			log.Warn().Float64("timeline_end", end).Float64("audio_duration", info.Duration).Msg("timeline runs past the end of the audio")
		}
	}

	if !runOpts.render {
		return nil
	}
	artifact, err := svc.Render(ctx, func(percent int) {
		con.printf("\rrendering %3d%%", percent)
	})
	con.printf("\n")
	if err != nil {
		return err
	}
	return writeOutput(runOpts.outputDir, artifact.Filename, artifact.Data)
}
