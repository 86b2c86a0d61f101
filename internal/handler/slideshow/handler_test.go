package slideshow

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/scripttools"
	slideshowsvc "slidecast/internal/service/slideshow"
)

type stubImages struct{}

func (stubImages) GenerateImage(ctx context.Context, req scripttools.ImageRequest) ([]byte, error) {
	return []byte("\x89PNG\r\n\x1a\n" + req.LineID), nil
}

type stubValidator struct{}

func (stubValidator) Validate(ctx context.Context, credential string) (bool, error) {
	return credential != "sk-bad", nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *events.Hub) {
	gin.SetMode(gin.TestMode)
	hub := events.NewHub()
	t.Cleanup(hub.Close)

	svc := slideshowsvc.NewService(slideshowsvc.Deps{
		Images:    stubImages{},
		Validator: stubValidator{},
		Observer:  hub,
	}, slideshowsvc.Options{MaxAttempts: 1}, slideshowsvc.WithSleeper(noSleep))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := gin.New()
	NewHandler(ctx, svc, hub, 1<<20).RegisterRoutes(engine.Group("/api/v1"))
	return engine, hub
}

func do(engine *gin.Engine, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, apiResponse) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func waitIdle(engine *gin.Engine) slideshowsvc.StatusView {
	var status slideshowsvc.StatusView
	for i := 0; i < 200; i++ {
		_, resp := do(engine, http.MethodGet, "/api/v1/status", "", nil)
		_ = json.Unmarshal(resp.Data, &status)
		if !status.Running {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	return status
}

func TestHandler(t *testing.T) {
	Convey("幻灯片 HTTP 接口", t, func() {
		engine, _ := setupRouter(t)

		Convey("未加载脚本时返回 404", func() {
			w, resp := do(engine, http.MethodGet, "/api/v1/lines", "", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(resp.Code, ShouldEqual, 40401)
			So(resp.Kind, ShouldEqual, "not_found")
		})

		Convey("空脚本返回 400", func() {
			w, resp := do(engine, http.MethodPost, "/api/v1/script", "text/plain", []byte("\n\n"))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(resp.Code, ShouldEqual, 40001)
			So(resp.Kind, ShouldEqual, "parse")
		})

		Convey("加载脚本后", func() {
			w, _ := do(engine, http.MethodPost, "/api/v1/script", "application/json",
				[]byte(`{"content": "First line|sky\nSecond line|\nThird line|sea"}`))
			So(w.Code, ShouldEqual, http.StatusCreated)

			w, resp := do(engine, http.MethodGet, "/api/v1/lines", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var lines struct {
				Lines []LineInfo `json:"lines"`
				Total int        `json:"total"`
			}
			So(json.Unmarshal(resp.Data, &lines), ShouldBeNil)
			So(lines.Total, ShouldEqual, 3)
			So(lines.Lines[0].Status, ShouldEqual, "pending")

			Convey("没有凭证时不能启动批处理", func() {
				w, resp := do(engine, http.MethodPost, "/api/v1/batch", "", nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(resp.Kind, ShouldEqual, "validation")
			})

			Convey("预算非法返回 400", func() {
				w, resp := do(engine, http.MethodPost, "/api/v1/session", "application/json",
					[]byte(`{"api_key": "sk-good", "budget": 0}`))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(resp.Code, ShouldEqual, 40002)
			})

			Convey("凭证被拒绝返回 400", func() {
				w, resp := do(engine, http.MethodPost, "/api/v1/session", "application/json",
					[]byte(`{"api_key": "sk-bad", "budget": 2}`))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(resp.Message, ShouldEqual, "credential rejected")
			})

			Convey("提交凭证并运行批处理", func() {
				w, resp := do(engine, http.MethodPost, "/api/v1/session", "application/json",
					[]byte(`{"api_key": "sk-good-1234", "budget": "2"}`))
				So(w.Code, ShouldEqual, http.StatusOK)
				var info slideshowsvc.SessionInfo
				So(json.Unmarshal(resp.Data, &info), ShouldBeNil)
				So(info.MaskedKey, ShouldEqual, "****1234")
				So(info.Remaining, ShouldEqual, 2)

				w, _ = do(engine, http.MethodPost, "/api/v1/batch", "", nil)
				So(w.Code, ShouldEqual, http.StatusAccepted)

				status := waitIdle(engine)
				So(status.Running, ShouldBeFalse)
				So(status.Project.Counts.Completed, ShouldEqual, 2)
				So(status.Project.LastReport.Outcome, ShouldEqual, slideshowsvc.OutcomeBudgetReached)
				So(status.Session.State, ShouldEqual, slideshowsvc.SessionExhausted)

				Convey("清单可下载", func() {
					w, _ := do(engine, http.MethodGet, "/api/v1/manifest", "", nil)
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "manifest.json")
					var entries []map[string]any
					So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
					So(len(entries), ShouldEqual, 3)
					So(entries[2]["api_key_batch"], ShouldBeNil)
				})

				Convey("图片包可下载", func() {
					w, _ := do(engine, http.MethodGet, "/api/v1/bundle", "", nil)
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Header().Get("Content-Type"), ShouldEqual, "application/zip")
				})

				Convey("重置已完成的行", func() {
					w, resp := do(engine, http.MethodPost, "/api/v1/lines/0/reset", "", nil)
					So(w.Code, ShouldEqual, http.StatusOK)
					var line LineInfo
					So(json.Unmarshal(resp.Data, &line), ShouldBeNil)
					So(line.Status, ShouldEqual, "pending")

					w, _ = do(engine, http.MethodPost, "/api/v1/lines/abc/reset", "", nil)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
				})
			})

			Convey("上传非音频文件返回 400", func() {
				body, contentType := multipartFile("audio", "notes.txt", []byte("just some text"))
				w, resp := do(engine, http.MethodPost, "/api/v1/audio", contentType, body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(resp.Message, ShouldStartWith, "unsupported audio type")
			})

			Convey("上传 WAV 音频", func() {
				wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)
				body, contentType := multipartFile("audio", "voice.wav", wav)
				w, resp := do(engine, http.MethodPost, "/api/v1/audio", contentType, body)
				So(w.Code, ShouldEqual, http.StatusCreated)
				var data UploadAudioResponseData
				So(json.Unmarshal(resp.Data, &data), ShouldBeNil)
				So(data.MIMEType, ShouldStartWith, "audio/")
			})

			Convey("未对齐时不能渲染", func() {
				w, resp := do(engine, http.MethodPost, "/api/v1/render", "", nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(resp.Kind, ShouldEqual, "validation")
			})

			Convey("未渲染时没有视频", func() {
				w, _ := do(engine, http.MethodGet, "/api/v1/video", "", nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("未配置存储时导出返回 400，历史为空", func() {
				w, _ := do(engine, http.MethodPost, "/api/v1/export", "", nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				w, resp := do(engine, http.MethodGet, "/api/v1/exports?page=0&page_size=500", "", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var history struct {
					Total    int64 `json:"total"`
					Page     int64 `json:"page"`
					PageSize int64 `json:"page_size"`
				}
				So(json.Unmarshal(resp.Data, &history), ShouldBeNil)
				So(history.Total, ShouldEqual, int64(0))
				So(history.Page, ShouldEqual, int64(1))
				So(history.PageSize, ShouldEqual, int64(20))

				w, resp = do(engine, http.MethodGet, "/api/v1/exports/abc", "", nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(resp.Kind, ShouldEqual, "not_found")
			})
		})
	})
}

func TestHandler_Events(t *testing.T) {
	Convey("WebSocket 推送事件", t, func() {
		engine, hub := setupRouter(t)
		server := httptest.NewServer(engine)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		for i := 0; i < 100 && hub.SubscriberCount() == 0; i++ {
			time.Sleep(5 * time.Millisecond)
		}
		So(hub.SubscriberCount(), ShouldEqual, 1)

		w, _ := do(engine, http.MethodPost, "/api/v1/session", "application/json",
			[]byte(`{"api_key": "sk-good-1234", "budget": 1}`))
		So(w.Code, ShouldEqual, http.StatusOK)

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event events.Event
		So(conn.ReadJSON(&event), ShouldBeNil)
		So(event.Type, ShouldEqual, events.TypeSessionUpdated)
	})
}

func multipartFile(field, filename string, data []byte) ([]byte, string) {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, _ := mw.CreateFormFile(field, filename)
	_, _ = fw.Write(data)
	_ = mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}
