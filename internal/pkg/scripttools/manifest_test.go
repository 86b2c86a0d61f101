package scripttools

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"slidecast/internal/model/script"
)

func TestBuildManifest(t *testing.T) {
	Convey("BuildManifest 按原始顺序投影每一行", t, func() {
		lines, err := ParseScript("Hello world|a dog\nSecond line\nThird|a cat")
		So(err, ShouldBeNil)

		at := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
		lines[0].MarkCompleted([]byte("png"), SanitizeFilename(lines[0].Narration, lines[0].ID), 2, at)
		lines[2].MarkFailed("upstream 500")

		entries := BuildManifest(lines)
		So(len(entries), ShouldEqual, 3)

		So(entries[0].ScriptLine, ShouldEqual, "Hello world")
		So(entries[0].PicPrompt, ShouldEqual, "a dog")
		So(entries[0].Filename, ShouldEqual, "hello_world.png")
		So(entries[0].Status, ShouldEqual, "completed")
		So(*entries[0].APIKeyBatch, ShouldEqual, 2)
		So(entries[0].Timestamp.Equal(at), ShouldBeTrue)

		So(entries[1].Filename, ShouldEqual, "")
		So(entries[1].Status, ShouldEqual, "pending")
		So(entries[1].APIKeyBatch, ShouldBeNil)
		So(entries[1].Timestamp, ShouldBeNil)

		So(entries[2].Status, ShouldEqual, "failed")

		Convey("重复调用结果相同", func() {
			So(BuildManifest(lines), ShouldResemble, entries)
		})

		Convey("序列化字段名与导出格式一致", func() {
			data, err := MarshalManifest(entries)
			So(err, ShouldBeNil)

			var decoded []map[string]any
			So(json.Unmarshal(data, &decoded), ShouldBeNil)
			So(len(decoded), ShouldEqual, 3)
			for _, key := range []string{"script_line", "pic_prompt", "filename", "status", "api_key_batch", "timestamp"} {
				_, ok := decoded[1][key]
				So(ok, ShouldBeTrue)
			}
			So(decoded[1]["api_key_batch"], ShouldBeNil)
			So(decoded[0]["api_key_batch"], ShouldEqual, 2.0)
		})
	})

	Convey("空行集合序列化为空数组", t, func() {
		data, err := MarshalManifest(BuildManifest([]*script.ScriptLine{}))
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, "[]")
	})
}
