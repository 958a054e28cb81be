package parser

import "regexp"

var (
	// codeFenceRegex は AI が付けがちな ```json ... ``` のコードブロックをキャプチャします。
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	// codeFenceMarkerRegex は中身を残してフェンス記号だけを取り除くために使います。
	codeFenceMarkerRegex = regexp.MustCompile("```(?:json)?\\s*")
)
