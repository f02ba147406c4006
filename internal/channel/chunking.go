package channel

import (
	"strings"

	"github.com/flemzord/sbot/pkg/message"
)

// ChunkConfig controls how envelope strings are split when they exceed a
// transport's maximum message length.
type ChunkConfig struct {
	// MaxLength is the maximum number of bytes per chunk.
	// A value <= 0 means no splitting.
	MaxLength int

	// PreserveBlocks avoids splitting inside fenced code blocks (``` ... ```).
	// When true, a code block that fits within MaxLength is kept intact even
	// if it would otherwise be split at a line boundary.
	PreserveBlocks bool
}

// SplitEnvelope returns a copy of env whose strings each respect
// cfg.MaxLength. Attachments are passed through unchanged. If every string
// already fits, env itself is returned.
func SplitEnvelope(env *message.Envelope, cfg ChunkConfig) *message.Envelope {
	if cfg.MaxLength <= 0 {
		return env
	}

	fits := true
	for _, s := range env.Strings {
		if len(s) > cfg.MaxLength {
			fits = false
			break
		}
	}
	if fits {
		return env
	}

	out := env.Clone()
	out.Strings = out.Strings[:0]
	for _, s := range env.Strings {
		out.Strings = append(out.Strings, SplitText(s, cfg)...)
	}
	return out
}

// SplitText breaks text into chunks respecting MaxLength and optionally
// preserving fenced code blocks.
func SplitText(text string, cfg ChunkConfig) []string {
	if cfg.MaxLength <= 0 || len(text) <= cfg.MaxLength {
		return []string{text}
	}

	lines := strings.Split(text, "\n")

	var chunks []string
	var current strings.Builder

	inCodeBlock := false

	for _, line := range lines {
		lineWithNewline := line + "\n"

		isFence := strings.HasPrefix(strings.TrimSpace(line), "```")

		// The closing fence still counts as inside the block.
		wasInCodeBlock := inCodeBlock
		if isFence {
			inCodeBlock = !inCodeBlock
		}

		if current.Len()+len(lineWithNewline) > cfg.MaxLength {
			// Keep accumulating inside a code block while the chunk stays
			// under twice the limit.
			stillInBlock := wasInCodeBlock || (isFence && !inCodeBlock)
			if cfg.PreserveBlocks && stillInBlock && current.Len() < cfg.MaxLength*2 {
				current.WriteString(lineWithNewline)
				continue
			}

			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
				current.Reset()
			}

			if len(lineWithNewline) > cfg.MaxLength {
				chunks = append(chunks, forceSplit(line, cfg.MaxLength)...)
				continue
			}
		}

		current.WriteString(lineWithNewline)
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}

	return chunks
}

// forceSplit breaks a single long line into chunks of at most maxLen bytes
// without cutting a UTF-8 sequence.
func forceSplit(line string, maxLen int) []string {
	var parts []string
	for len(line) > maxLen {
		cut := maxLen
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLen
		}
		parts = append(parts, line[:cut])
		line = line[cut:]
	}
	if len(line) > 0 {
		parts = append(parts, line)
	}
	return parts
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
