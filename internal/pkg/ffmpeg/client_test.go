package ffmpeg

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/scripttools"
)

func TestSegmentDurations(t *testing.T) {
	Convey("片段时长", t, func() {
		Convey("第一张覆盖开头静音，每张持续到下一条开始", func() {
			timeline := []script.TimelineEntry{
				{LineID: "a", Start: 0.5, End: 2},
				{LineID: "b", Start: 2.5, End: 4},
				{LineID: "c", Start: 4, End: 7},
			}
			So(SegmentDurations(timeline), ShouldResemble, []float64{2.5, 1.5, 3.0})
		})

		Convey("单条时间轴", func() {
			timeline := []script.TimelineEntry{{LineID: "a", Start: 1, End: 3}}
			So(SegmentDurations(timeline), ShouldResemble, []float64{3.0})
		})

		Convey("空时间轴", func() {
			So(SegmentDurations(nil), ShouldBeEmpty)
		})
	})

	Convey("淡入时长不超过片段的一半", t, func() {
		So(fadeDuration(0.5, 3), ShouldEqual, 0.5)
		So(fadeDuration(2, 3), ShouldEqual, 1.5)
		So(fadeDuration(0, 3), ShouldEqual, 0.0)
	})
}

type recordedCommand struct {
	name string
	args []string
}

// fakeRunner 记录命令并生成最后一个参数指定的输出文件
func fakeRunner(commands *[]recordedCommand, failOn string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*commands = append(*commands, recordedCommand{name: name, args: args})
		joined := strings.Join(args, " ")
		if failOn != "" && strings.Contains(joined, failOn) {
			return nil, errors.New("ffmpeg failed: exit status 1")
		}
		if name == "ffprobe" {
			return []byte(`{"format": {"duration": "12.480000"}}`), nil
		}
		if err := os.WriteFile(args[len(args)-1], []byte("mp4:"+joined), 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func TestClient_Render(t *testing.T) {
	Convey("渲染流程", t, func() {
		var commands []recordedCommand
		client := NewClient(Config{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", WorkDir: t.TempDir()})

		req := scripttools.RenderRequest{
			Timeline: []script.TimelineEntry{
				{LineID: "line-0001", Start: 0, End: 2, Image: []byte("\x89PNG\r\n\x1a\n")},
				{LineID: "line-0002", Start: 2, End: 5, Image: []byte("\x89PNG\r\n\x1a\n")},
			},
			Audio:  script.Audio{Filename: "voice.mp3", MIMEType: "audio/mpeg", Data: []byte("ID3\x03")},
			Output: scripttools.OutputConfig{Width: 1280, Height: 720, FPS: 30, FadeIn: 0.5},
		}

		Convey("生成片段、合并并混音", func() {
			client.WithRunner(fakeRunner(&commands, ""))
			var seen []int
			artifact, err := client.Render(context.Background(), req, func(p int) { seen = append(seen, p) })
			So(err, ShouldBeNil)
			So(artifact.Filename, ShouldEqual, OutputFilename)
			So(artifact.ContentType, ShouldEqual, "video/mp4")
			So(artifact.Duration, ShouldEqual, 5.0)
			So(string(artifact.Data), ShouldContainSubstring, "-c:a aac")
			So(seen, ShouldResemble, []int{40, 80, 85, 95})

			So(len(commands), ShouldEqual, 4)
			first := strings.Join(commands[0].args, " ")
			So(first, ShouldContainSubstring, "-t 2.000")
			So(first, ShouldContainSubstring, "fade=t=in:st=0:d=0.500")
			So(first, ShouldContainSubstring, ".png")
			So(strings.Join(commands[1].args, " "), ShouldContainSubstring, "-t 3.000")
			So(strings.Join(commands[2].args, " "), ShouldContainSubstring, "-f concat")
		})

		Convey("片段失败时返回错误", func() {
			client.WithRunner(fakeRunner(&commands, "segment_0001"))
			_, err := client.Render(context.Background(), req, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "line-0002")
		})

		Convey("空时间轴直接拒绝", func() {
			client.WithRunner(fakeRunner(&commands, ""))
			_, err := client.Render(context.Background(), scripttools.RenderRequest{Audio: req.Audio}, nil)
			So(err, ShouldNotBeNil)
			So(commands, ShouldBeEmpty)
		})

		Convey("读取音频时长", func() {
			client.WithRunner(fakeRunner(&commands, ""))
			info, err := client.GetAudioInfo(context.Background(), "voice.mp3")
			So(err, ShouldBeNil)
			So(info.Duration, ShouldEqual, 12.48)
		})
	})
}
