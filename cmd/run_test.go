package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/pkg/scripttools"
	"slidecast/internal/service/slideshow"
)

type stubImages struct{}

func (stubImages) GenerateImage(ctx context.Context, req scripttools.ImageRequest) ([]byte, error) {
	return []byte("png:" + req.LineID), nil
}

type stubValidator struct{}

func (stubValidator) Validate(ctx context.Context, credential string) (bool, error) {
	return strings.HasPrefix(credential, "sk-"), nil
}

func newTestService() slideshow.Service {
	return slideshow.NewService(slideshow.Deps{
		Images:    stubImages{},
		Validator: stubValidator{},
	}, slideshow.Options{MaxAttempts: 1}, slideshow.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

func TestPromptSession(t *testing.T) {
	Convey("交互式提交凭证", t, func() {
		ctx := context.Background()
		svc := newTestService()
		out := new(bytes.Buffer)

		Convey("预算非法或凭证被拒绝时重新提示", func() {
			input := "sk-one\nabc\nbad-key\n3\nsk-good-5678\n2\n"
			info, err := promptSession(ctx, svc, newConsole(strings.NewReader(input), out))
			So(err, ShouldBeNil)
			So(info.MaskedKey, ShouldEqual, "****5678")
			So(info.Budget, ShouldEqual, 2)
			So(out.String(), ShouldContainSubstring, "budget must be a positive integer")
			So(out.String(), ShouldContainSubstring, "credential rejected")
		})

		Convey("空凭证表示停止", func() {
			_, err := promptSession(ctx, svc, newConsole(strings.NewReader("\n"), out))
			So(err, ShouldEqual, errStopped)
		})
	})
}

func TestGenerateAll(t *testing.T) {
	Convey("预算用完后请求下一个凭证，直到全部完成", t, func() {
		ctx := context.Background()
		svc := newTestService()
		_, err := svc.LoadScript(ctx, "One|\nTwo|\nThree|\n")
		So(err, ShouldBeNil)

		out := new(bytes.Buffer)
		input := "sk-first\n2\nsk-second\n5\n"
		So(generateAll(ctx, svc, newConsole(strings.NewReader(input), out)), ShouldBeNil)

		status := svc.Status()
		So(status.Project.Counts.Completed, ShouldEqual, 3)
		So(status.Session.Sequence, ShouldEqual, 2)
		So(out.String(), ShouldContainSubstring, "batch limit reached")
		So(out.String(), ShouldContainSubstring, "all lines processed")

		lines, err := svc.Lines()
		So(err, ShouldBeNil)
		So(lines[0].Batch, ShouldEqual, 1)
		So(lines[2].Batch, ShouldEqual, 2)
	})

	Convey("输入结束时停止且保留进度", t, func() {
		ctx := context.Background()
		svc := newTestService()
		_, err := svc.LoadScript(ctx, "One|\nTwo|\n")
		So(err, ShouldBeNil)

		So(generateAll(ctx, svc, newConsole(strings.NewReader("sk-only\n1\n"), new(bytes.Buffer))), ShouldBeNil)
		So(svc.Status().Project.Counts.Completed, ShouldEqual, 1)
		So(svc.Status().Project.Counts.Pending, ShouldEqual, 1)
	})
}

func TestRenderTable(t *testing.T) {
	Convey("渲染表格", t, func() {
		out := renderTable([]string{"Name", "Size"}, [][]string{{"a.png"}, {"b.png", "2 kB"}}, []columnAlignment{alignLeft, alignRight})
		So(strings.ToUpper(out), ShouldContainSubstring, "NAME")
		So(out, ShouldContainSubstring, "b.png")
		So(out, ShouldContainSubstring, "2 kB")
		So(renderTable(nil, nil, nil), ShouldEqual, "")
	})
}
