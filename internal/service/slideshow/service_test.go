package slideshow

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/model/export"
	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/scripttools"
	"slidecast/internal/pkg/storage/local"
)

type fakeAlignment struct {
	hints []script.AlignmentHint
	err   error
	got   []scripttools.AlignmentLine
	key   string
}

func (f *fakeAlignment) Align(ctx context.Context, credential string, audio script.Audio, lines []scripttools.AlignmentLine) ([]script.AlignmentHint, error) {
	f.key = credential
	f.got = lines
	return f.hints, f.err
}

type fakeRenderer struct {
	err      error
	requests []scripttools.RenderRequest
}

func (f *fakeRenderer) Render(ctx context.Context, req scripttools.RenderRequest, progress scripttools.ProgressFunc) (*scripttools.Artifact, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	progress(10)
	progress(5)
	progress(60)
	return &scripttools.Artifact{
		Filename:    "slideshow.mp4",
		ContentType: "video/mp4",
		Data:        []byte("mp4"),
		Duration:    scripttools.TimelineDuration(req.Timeline),
	}, nil
}

type memoryArchive struct {
	records []*export.Record
	err     error
}

func (m *memoryArchive) Create(ctx context.Context, record *export.Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryArchive) FindByID(ctx context.Context, exportID string) (*export.Record, error) {
	for _, r := range m.records {
		if r.ID == exportID {
			return r, nil
		}
	}
	return nil, apperr.NotFound("export not found")
}

func (m *memoryArchive) ListByProject(ctx context.Context, projectID string, page, pageSize int64) ([]*export.Record, int64, error) {
	var out []*export.Record
	for _, r := range m.records {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

const testScript = "Sunrise over the hills|golden light\nA fox crosses the road|\nThe town wakes up|busy market\n"

func TestService(t *testing.T) {
	Convey("slideshow service", t, func() {
		ctx := context.Background()
		images := &fakeImages{results: map[string][]error{}}
		alignment := &fakeAlignment{hints: []script.AlignmentHint{
			{LineID: "line-0001", Start: 0, End: 2},
			{LineID: "line-0002", Start: 1.5, End: 5},
		}}
		renderer := &fakeRenderer{}
		archive := &memoryArchive{}
		st, err := local.NewLocalStorage(t.TempDir(), "http://files.local")
		So(err, ShouldBeNil)

		hub := events.NewHub()
		defer hub.Close()
		sub, cancel := hub.Subscribe()
		defer cancel()

		svc := NewService(Deps{
			Images:    images,
			Validator: &fakeValidator{valid: true},
			Alignment: alignment,
			Renderer:  renderer,
			Exporter:  NewExporter(st, archive),
			Observer:  hub,
		}, Options{
			MaxAttempts: 3,
			Output:      scripttools.OutputConfig{Width: 640, Height: 360, FPS: 24, FadeIn: 0.5},
		}, WithSleeper(noSleep))

		Convey("未加载脚本时返回 not_found", func() {
			_, err := svc.Lines()
			So(apperr.KindOf(err), ShouldEqual, apperr.KindNotFound)
			So(svc.Status().Project, ShouldBeNil)
		})

		Convey("空脚本返回解析错误", func() {
			_, err := svc.LoadScript(ctx, "\n  \n")
			So(apperr.KindOf(err), ShouldEqual, apperr.KindParse)
			So(err.Error(), ShouldEqual, scripttools.ErrEmptyScript)
		})

		Convey("加载脚本后", func() {
			view, err := svc.LoadScript(ctx, testScript)
			So(err, ShouldBeNil)
			So(view.Counts.Total, ShouldEqual, 3)
			So(view.Counts.Pending, ShouldEqual, 3)

			Convey("没有凭证时不能运行批处理", func() {
				_, err := svc.RunBatch(ctx)
				So(apperr.KindOf(err), ShouldEqual, apperr.KindValidation)
			})

			Convey("批处理运行中不能替换脚本，运行继续使用原项目", func() {
				_, err := svc.SubmitCredential(ctx, "sk-test-9999", 5)
				So(err, ShouldBeNil)

				entered := make(chan struct{})
				release := make(chan struct{})
				var once sync.Once
				images.hook = func(req scripttools.ImageRequest) {
					once.Do(func() {
						close(entered)
						<-release
					})
				}

				done := make(chan *RunReport, 1)
				go func() {
					report, _ := svc.RunBatch(ctx)
					done <- report
				}()
				<-entered

				_, err = svc.LoadScript(ctx, "Another script|\n")
				So(apperr.KindOf(err), ShouldEqual, apperr.KindConflict)
				again, err := svc.RunBatch(ctx)
				So(err, ShouldBeNil)
				So(again.Outcome, ShouldEqual, OutcomeAlreadyRunning)

				close(release)
				first := <-done
				So(first.Outcome, ShouldEqual, OutcomeCompleted)
				So(svc.Status().Project.ID, ShouldEqual, view.ID)
				So(svc.Status().Project.Counts.Completed, ShouldEqual, 3)

				replaced, err := svc.LoadScript(ctx, "Another script|\n")
				So(err, ShouldBeNil)
				So(replaced.ID, ShouldNotEqual, view.ID)
			})

			Convey("提交凭证并运行批处理", func() {
				info, err := svc.SubmitCredential(ctx, "sk-test-9999", 2)
				So(err, ShouldBeNil)
				So(info.State, ShouldEqual, SessionActive)
				So(info.MaskedKey, ShouldEqual, "****9999")
				So((<-sub).Type, ShouldEqual, events.TypeSessionUpdated)

				report, err := svc.RunBatch(ctx)
				So(err, ShouldBeNil)
				So(report.Outcome, ShouldEqual, OutcomeBudgetReached)
				So(svc.Session().State, ShouldEqual, SessionExhausted)

				status := svc.Status()
				So(status.Project.Counts.Completed, ShouldEqual, 2)
				So(status.Project.LastReport.Outcome, ShouldEqual, OutcomeBudgetReached)

				Convey("清单包含所有行，未完成行的批次和时间为 null", func() {
					data, err := svc.Manifest()
					So(err, ShouldBeNil)
					var entries []map[string]any
					So(json.Unmarshal(data, &entries), ShouldBeNil)
					So(len(entries), ShouldEqual, 3)
					So(entries[0]["filename"], ShouldEqual, "sunrise_over_the_hills.png")
					So(entries[0]["api_key_batch"], ShouldEqual, 1.0)
					So(entries[2]["status"], ShouldEqual, "pending")
					So(entries[2]["api_key_batch"], ShouldBeNil)
					So(entries[2]["timestamp"], ShouldBeNil)
				})

				Convey("打包文件包含清单和已生成的图片", func() {
					data, err := svc.Bundle()
					So(err, ShouldBeNil)
					zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
					So(err, ShouldBeNil)
					var names []string
					for _, f := range zr.File {
						names = append(names, f.Name)
					}
					So(names, ShouldResemble, []string{
						"manifest.json",
						"images/sunrise_over_the_hills.png",
						"images/a_fox_crosses_the_road.png",
					})
				})

				Convey("没有音频时不能对齐", func() {
					_, err := svc.Align(ctx, "sk-other")
					So(apperr.KindOf(err), ShouldEqual, apperr.KindValidation)
				})

				Convey("对齐只使用已完成的行，并规范化时间轴", func() {
					So(svc.SetAudio(ctx, script.Audio{Filename: "voice.mp3", MIMEType: "audio/mpeg", Data: []byte("id3")}), ShouldBeNil)

					// 会话已失效，必须显式提供凭证
					_, err := svc.Align(ctx, "")
					So(apperr.KindOf(err), ShouldEqual, apperr.KindValidation)

					timeline, err := svc.Align(ctx, "sk-align")
					So(err, ShouldBeNil)
					So(alignment.key, ShouldEqual, "sk-align")
					So(len(alignment.got), ShouldEqual, 2)
					So(len(timeline), ShouldEqual, 2)
					So(timeline[1].Start, ShouldEqual, 2.0)
					So(timeline[1].End, ShouldEqual, 5.0)

					stored, err := svc.Timeline()
					So(err, ShouldBeNil)
					So(stored, ShouldResemble, timeline)

					Convey("对齐失败返回 sync 错误，保留之前的时间轴", func() {
						alignment.err = errors.New("timeout")
						_, err := svc.Align(ctx, "sk-align")
						So(apperr.KindOf(err), ShouldEqual, apperr.KindSync)
						stored, _ := svc.Timeline()
						So(len(stored), ShouldEqual, 2)
					})

					Convey("渲染并导出", func() {
						var seen []int
						artifact, err := svc.Render(ctx, func(p int) { seen = append(seen, p) })
						So(err, ShouldBeNil)
						So(artifact.Duration, ShouldEqual, 5.0)
						So(seen, ShouldResemble, []int{10, 60, 100})
						So(renderer.requests[0].Output.Width, ShouldEqual, 640)
						So(svc.Rendering(), ShouldBeFalse)

						video, err := svc.Video()
						So(err, ShouldBeNil)
						So(video.Filename, ShouldEqual, "slideshow.mp4")

						result, err := svc.Export(ctx)
						So(err, ShouldBeNil)
						So(result.Archived, ShouldBeTrue)
						So(len(result.Artifacts), ShouldEqual, 3)
						So(result.Artifacts[2].Name, ShouldEqual, "slideshow.mp4")

						rc, err := st.Get(ctx, result.Artifacts[0].Key)
						So(err, ShouldBeNil)
						defer rc.Close()
						manifest, _ := io.ReadAll(rc)
						So(string(manifest), ShouldContainSubstring, `"script_line": "Sunrise over the hills"`)

						records, total, err := svc.ExportHistory(ctx, 1, 20)
						So(err, ShouldBeNil)
						So(total, ShouldEqual, int64(1))
						So(records[0].Duration, ShouldEqual, 5.0)
						So(records[0].Completed, ShouldEqual, 2)

						record, err := svc.GetExport(ctx, result.ExportID)
						So(err, ShouldBeNil)
						So(len(record.Artifacts), ShouldEqual, 3)
						_, err = svc.GetExport(ctx, "missing")
						So(apperr.KindOf(err), ShouldEqual, apperr.KindNotFound)
					})

					Convey("渲染失败返回 render 错误", func() {
						renderer.err = errors.New("ffmpeg exited 1")
						_, err := svc.Render(ctx, nil)
						So(apperr.KindOf(err), ShouldEqual, apperr.KindRender)
						_, err = svc.Video()
						So(apperr.KindOf(err), ShouldEqual, apperr.KindNotFound)
					})
				})

				Convey("重置已完成的行", func() {
					line, err := svc.ResetLine(ctx, 0)
					So(err, ShouldBeNil)
					So(line.Status, ShouldEqual, script.LineStatusPending)
					So(line.HasImage(), ShouldBeFalse)

					_, err = svc.ResetLine(ctx, 9)
					So(apperr.KindOf(err), ShouldEqual, apperr.KindNotFound)
				})
			})

			Convey("未对齐时不能渲染", func() {
				_, err := svc.Render(ctx, nil)
				So(apperr.KindOf(err), ShouldEqual, apperr.KindValidation)
			})
		})

		Convey("未配置存储时导出返回校验错误", func() {
			bare := NewService(Deps{Images: images, Validator: &fakeValidator{valid: true}}, Options{})
			_, err := bare.LoadScript(ctx, testScript)
			So(err, ShouldBeNil)
			So(bare.ExportEnabled(), ShouldBeFalse)
			_, err = bare.Export(ctx)
			So(apperr.KindOf(err), ShouldEqual, apperr.KindValidation)
			records, total, err := bare.ExportHistory(ctx, 1, 20)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, int64(0))
			So(records, ShouldBeEmpty)
		})
	})
}

func TestExporter_BundleDuplicateNames(t *testing.T) {
	Convey("同名图片在打包文件中追加序号", t, func() {
		now := time.Now()
		lines := []*script.ScriptLine{
			{ID: "line-0001", Narration: "Same", Status: script.LineStatusCompleted, Image: []byte("a"), Filename: "same.png", Batch: 1, CompletedAt: &now},
			{ID: "line-0002", Narration: "Same", Status: script.LineStatusCompleted, Image: []byte("b"), Filename: "same.png", Batch: 1, CompletedAt: &now},
			{ID: "line-0003", Narration: "Other", Status: script.LineStatusPending},
		}

		data, err := NewExporter(nil, nil).Bundle(lines)
		So(err, ShouldBeNil)
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		So(err, ShouldBeNil)
		So(len(zr.File), ShouldEqual, 3)
		So(zr.File[1].Name, ShouldEqual, "images/same.png")
		So(zr.File[2].Name, ShouldEqual, "images/same_2.png")
	})
}
