package scripttools

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/model/script"
)

func completedLine(index int, narration string) *script.ScriptLine {
	line := &script.ScriptLine{
		ID:        LineID(index),
		Index:     index,
		Narration: narration,
		Status:    script.LineStatusPending,
	}
	line.MarkCompleted([]byte("png"), SanitizeFilename(narration, line.ID), 1, time.Unix(0, 0))
	return line
}

func assertNormalized(entries []script.TimelineEntry, minDuration float64) {
	for i, entry := range entries {
		So(entry.End-entry.Start, ShouldBeGreaterThanOrEqualTo, minDuration-1e-9)
		if i > 0 {
			So(entry.Start, ShouldBeGreaterThanOrEqualTo, entries[i-1].End)
		}
	}
}

func TestTimelineNormalizer_Normalize(t *testing.T) {
	Convey("Normalize 保证时间轴单调、无重叠且满足最短时长", t, func() {
		n := NewTimelineNormalizer(0, 0)
		So(n.MinDuration(), ShouldEqual, DefaultMinDuration)
		So(n.FallbackDuration(), ShouldEqual, DefaultFallbackDuration)

		Convey("A(0-2)、B无提示、C(1-3) 被依次平移", func() {
			entries := []script.TimelineEntry{
				{LineID: "A", Start: 0, End: 2},
				{LineID: "B", Start: 0, End: 0},
				{LineID: "C", Start: 1, End: 3},
			}
			out := n.Normalize(entries)

			So(out[0].Start, ShouldEqual, 0.0)
			So(out[0].End, ShouldEqual, 2.0)
			So(out[1].Start, ShouldEqual, 2.0)
			So(out[1].End, ShouldEqual, 5.0)
			So(out[2].Start, ShouldEqual, 5.0)
			So(out[2].End, ShouldAlmostEqual, 5.8, 1e-9)
			So([]string{out[0].LineID, out[1].LineID, out[2].LineID}, ShouldResemble, []string{"A", "B", "C"})
			assertNormalized(out, DefaultMinDuration)
		})

		Convey("不修改入参", func() {
			entries := []script.TimelineEntry{{LineID: "A", Start: 1, End: 1.1}}
			_ = n.Normalize(entries)
			So(entries[0].End, ShouldEqual, 1.1)
		})

		Convey("完全没有提示的条目取 fallback 时长而不是最短时长", func() {
			out := n.Normalize([]script.TimelineEntry{
				{LineID: "A", Start: 0, End: 0},
				{LineID: "B", Start: 0, End: 0},
			})
			So(out[0].Start, ShouldEqual, 0.0)
			So(out[0].End, ShouldEqual, DefaultFallbackDuration)
			So(out[1].Start, ShouldEqual, DefaultFallbackDuration)
			So(out[1].End, ShouldEqual, 2*DefaultFallbackDuration)
		})

		Convey("有提示但过短的条目只延长到最短时长", func() {
			out := n.Normalize([]script.TimelineEntry{{LineID: "A", Start: 4, End: 4.2}})
			So(out[0].Start, ShouldEqual, 4.0)
			So(out[0].End, ShouldAlmostEqual, 4.8, 1e-9)
		})

		Convey("结束早于开始的提示被修正", func() {
			out := n.Normalize([]script.TimelineEntry{{LineID: "A", Start: 6, End: 2}})
			So(out[0].Start, ShouldEqual, 6.0)
			So(out[0].End, ShouldAlmostEqual, 6.8, 1e-9)
		})

		Convey("保留提示之间的空隙", func() {
			out := n.Normalize([]script.TimelineEntry{
				{LineID: "A", Start: 0, End: 1},
				{LineID: "B", Start: 3, End: 5},
			})
			So(out[1].Start, ShouldEqual, 3.0)
			So(out[1].End, ShouldEqual, 5.0)
		})

		Convey("任意乱序提示都满足不变量", func() {
			entries := []script.TimelineEntry{
				{LineID: "1", Start: 10, End: 12},
				{LineID: "2", Start: 2, End: 3},
				{LineID: "3", Start: 0, End: 0},
				{LineID: "4", Start: 11.5, End: 11.6},
				{LineID: "5", Start: 30, End: 29},
				{LineID: "6", Start: 0, End: 40},
			}
			assertNormalized(n.Normalize(entries), DefaultMinDuration)
		})

		Convey("空输入返回空切片", func() {
			So(len(n.Normalize(nil)), ShouldEqual, 0)
		})
	})
}

func TestSelectAlignableAndBuildTimeline(t *testing.T) {
	Convey("只选择已完成且有图片的行，并按ID匹配提示", t, func() {
		a := completedLine(0, "Alpha")
		b := &script.ScriptLine{ID: LineID(1), Index: 1, Narration: "Beta", Status: script.LineStatusFailed}
		c := completedLine(2, "Gamma")
		d := &script.ScriptLine{ID: LineID(3), Index: 3, Narration: "Delta", Status: script.LineStatusCompleted}

		selected := SelectAlignable([]*script.ScriptLine{a, b, c, d})
		So(len(selected), ShouldEqual, 2)
		So(selected[0].ID, ShouldEqual, a.ID)
		So(selected[1].ID, ShouldEqual, c.ID)

		entries := BuildTimeline(selected, []script.AlignmentHint{
			{LineID: c.ID, Start: 4, End: 6},
			{LineID: "unknown", Start: 1, End: 2},
		})
		So(len(entries), ShouldEqual, 2)
		So(entries[0].LineID, ShouldEqual, a.ID)
		So(entries[0].Start, ShouldEqual, 0.0)
		So(entries[0].End, ShouldEqual, 0.0)
		So(entries[0].ImageName, ShouldEqual, "alpha.png")
		So(entries[1].Start, ShouldEqual, 4.0)
		So(entries[1].End, ShouldEqual, 6.0)
		So(entries[1].Text, ShouldEqual, "Gamma")
	})
}

func TestParseAlignmentHints(t *testing.T) {
	Convey("ParseAlignmentHints 容忍代码块与包装对象", t, func() {
		Convey("纯数组", func() {
			hints, err := ParseAlignmentHints(`[{"id":"line-0001","start":0,"end":1.5}]`)
			So(err, ShouldBeNil)
			So(len(hints), ShouldEqual, 1)
			So(hints[0].End, ShouldEqual, 1.5)
		})

		Convey("markdown 代码块", func() {
			hints, err := ParseAlignmentHints("```json\n[{\"id\":\"line-0002\",\"start\":2,\"end\":3}]\n```")
			So(err, ShouldBeNil)
			So(hints[0].LineID, ShouldEqual, "line-0002")
		})

		Convey("segments 包装并丢弃无效提示", func() {
			hints, err := ParseAlignmentHints(`Here you go: {"segments":[{"id":"line-0001","start":0,"end":1},{"id":"","start":1,"end":2},{"id":"line-0003","start":-1,"end":2}]}`)
			So(err, ShouldBeNil)
			So(len(hints), ShouldEqual, 1)
		})

		Convey("无法解析时返回错误", func() {
			_, err := ParseAlignmentHints("no json here")
			So(err, ShouldNotBeNil)
		})
	})
}
