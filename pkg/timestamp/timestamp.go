package timestamp

import (
	"fmt"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// Format は秒数の範囲を "M:SS-M:SS" 形式にするのだ。
func Format(start, end int) string {
	return clock(start) + "-" + clock(end)
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Ranges は 0 秒から始まる累積の畳み込みで、各シーンの範囲を返すのだ。
// 0 以下の長さは domain.DefaultTimelineSeconds として扱うのだ。
func Ranges(durations []int) []string {
	out := make([]string, len(durations))
	elapsed := 0
	for i, d := range durations {
		if d <= 0 {
			d = domain.DefaultTimelineSeconds
		}
		out[i] = Format(elapsed, elapsed+d)
		elapsed += d
	}
	return out
}

// ApplyVideo は Timestamp を設定したコピーを返すのだ。DurationSeconds は書き換えないので何度適用しても同じ結果なのだ。
func ApplyVideo(scenes []domain.VideoScene) []domain.VideoScene {
	durations := make([]int, len(scenes))
	for i, s := range scenes {
		durations[i] = s.DurationSeconds
	}
	ranges := Ranges(durations)

	out := make([]domain.VideoScene, len(scenes))
	for i, s := range scenes {
		s.Timestamp = ranges[i]
		out[i] = s
	}
	return out
}

// ApplyStoryboard は字コンテの自由記述の秒数から Timestamp を設定したコピーを返すのだ。
func ApplyStoryboard(scenes []domain.Scene) []domain.Scene {
	durations := make([]int, len(scenes))
	for i, s := range scenes {
		durations[i] = s.DurationSeconds()
	}
	ranges := Ranges(durations)

	out := make([]domain.Scene, len(scenes))
	for i, s := range scenes {
		s.Timestamp = ranges[i]
		out[i] = s
	}
	return out
}
