package ytdlp

import (
	"io"
	"os"

	"github.com/h2non/filetype"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// DetectMedia sniffs the file header and reports the detected extension and
// whether it is consistent with the requested format (audio vs video).
func DetectMedia(path string, f types.Format) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 261)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", false
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}

	if f.IsAudio() {
		return kind.Extension, filetype.IsAudio(head)
	}
	return kind.Extension, filetype.IsVideo(head)
}
