package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	logx "github.com/catalog-agent/server/pkg/logger"
)

// snapshot is the on-disk form of the index. The embedding model is recorded
// so a snapshot built with one model is not reused with another.
type snapshot struct {
	Model   string  `json:"model"`
	Entries []Entry `json:"entries"`
}

// LoadSnapshot restores a previously saved index from path into m. Returns
// false without error when no usable snapshot exists (missing file or model
// mismatch); the caller then rebuilds from the catalog.
func (m *Memory) LoadSnapshot(path, model string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read index snapshot %q: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("index snapshot is corrupt, rebuilding")
		return false, nil
	}
	if snap.Model != model {
		logx.Info().
			Str("snapshot_model", snap.Model).
			Str("configured_model", model).
			Msg("index snapshot built with a different embedding model, rebuilding")
		return false, nil
	}

	m.mu.Lock()
	m.entries = snap.Entries
	m.mu.Unlock()

	logx.Info().Int("entries", len(snap.Entries)).Str("path", path).Msg("index snapshot loaded")
	return true, nil
}

// SaveSnapshot writes the current index to path.
func (m *Memory) SaveSnapshot(path, model string) error {
	m.mu.RLock()
	snap := snapshot{Model: model, Entries: m.entries}
	m.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index snapshot %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize index snapshot %q: %w", path, err)
	}
	logx.Info().Int("entries", len(snap.Entries)).Str("path", path).Msg("index snapshot saved")
	return nil
}

// BuildFromTexts chunks and embeds the given product texts into the index.
// Each product yields one or more entries depending on chunk size.
func (m *Memory) BuildFromTexts(ctx context.Context, texts []ProductSource, chunkSize, chunkOverlap int) error {
	var entries []Entry
	for _, src := range texts {
		for _, chunk := range splitText(src.Text, chunkSize, chunkOverlap) {
			entries = append(entries, Entry{
				Title:    src.Title,
				Text:     chunk,
				Metadata: src.Metadata,
			})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return m.Add(ctx, entries)
}

// ProductSource is raw product text destined for the index.
type ProductSource struct {
	Title    string
	Text     string
	Metadata map[string]string
}

// splitText cuts text into rune windows of at most size with the given
// overlap between consecutive windows.
func splitText(text string, size, overlap int) []string {
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
