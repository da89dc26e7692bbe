// Package assets captures files chosen for a persona's avatar or voice sample.
// It enforces the hints shown next to the pickers (media type and size) before
// handing an opaque reference to the persona settings.
package assets

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"persona_chat/internal/config"
	chatsvc "persona_chat/internal/services/chat"
)

var (
	ErrTooLarge  = errors.New("asset is too large")
	ErrMediaType = errors.New("asset has unsupported media type")
)

type Kind string

const (
	KindAvatar Kind = "avatar"
	KindVoice  Kind = "voice"
)

type Picker struct {
	avatarMaxBytes int64
	voiceMaxBytes  int64
}

func NewPicker(cfg config.Config) *Picker {
	return &Picker{avatarMaxBytes: cfg.AvatarMaxBytes, voiceMaxBytes: cfg.VoiceMaxBytes}
}

// Capture stats the file at path and returns a reference to it. The file's
// content is not read.
func (p *Picker) Capture(path string, kind Kind) (chatsvc.Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return chatsvc.Asset{}, fmt.Errorf("stat %s: %w", kind, err)
	}
	if info.IsDir() {
		return chatsvc.Asset{}, fmt.Errorf("%s %s is a directory", kind, path)
	}

	mediaType := mediaTypeOf(path)
	if base, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = base
	}
	wantPrefix, limit := p.rules(kind)
	if !strings.HasPrefix(mediaType, wantPrefix) {
		return chatsvc.Asset{}, fmt.Errorf("%w: %s %q, want %s*", ErrMediaType, kind, mediaType, wantPrefix)
	}
	if info.Size() > limit {
		return chatsvc.Asset{}, fmt.Errorf("%w: %s is %s, limit %s", ErrTooLarge, kind,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(limit)))
	}

	return chatsvc.Asset{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
	}, nil
}

// Formats named by the pickers. The system mime table may lack audio types.
var knownTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

func mediaTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if known, ok := knownTypes[ext]; ok {
		return known
	}
	return mime.TypeByExtension(ext)
}

func (p *Picker) rules(kind Kind) (string, int64) {
	if kind == KindVoice {
		return "audio/", p.voiceMaxBytes
	}
	return "image/", p.avatarMaxBytes
}
