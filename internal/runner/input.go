package runner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// StdinPath は標準入力から読むことを示すパスなのだ。
const StdinPath = "-"

// ReadInput はファイルか標準入力から全文を読み込むのだ。
func ReadInput(path string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &domain.ConfigError{Code: domain.CodeEmptyInput, Field: "lyrics", Msg: "入力ファイルが指定されていません"}
	}

	var r io.Reader
	if path == StdinPath {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("入力ファイル '%s' を開けませんでした: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("入力の読み込みに失敗しました: %w", err)
	}
	return string(b), nil
}
