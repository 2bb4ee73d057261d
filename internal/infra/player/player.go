// Package player provides a scripted playlist source that replays playlist
// documents from local files, for demos and end-to-end tests.
package player

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

// Player returns one scripted playlist per Fetch, in order.
type Player struct {
	mu    sync.Mutex
	steps []playlist.Blob
	next  int
	loop  bool
}

// New creates a player from already decoded steps. A nil step scripts a
// "no response" answer and an empty one scripts "no change".
func New(steps []playlist.Blob, loop bool) (*Player, error) {
	if len(steps) == 0 {
		return nil, errors.New("player needs at least one playlist")
	}
	return &Player{steps: steps, loop: loop}, nil
}

// Load reads every file as a YAML or JSON playlist document.
func Load(files []string, loop bool) (*Player, error) {
	steps := make([]playlist.Blob, 0, len(files))
	for _, file := range files {
		blob, err := readFile(file)
		if err != nil {
			return nil, err
		}
		steps = append(steps, blob)
	}
	zlog.Info().Msgf("loaded playlist player script: steps=%d loop=%v", len(steps), loop)
	return New(steps, loop)
}

// Fetch returns the next scripted playlist. Past the end it repeats the last
// step, or starts over when looping.
func (p *Player) Fetch(ctx context.Context) (playlist.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.next
	if idx >= len(p.steps) {
		if p.loop {
			idx = 0
		} else {
			idx = len(p.steps) - 1
		}
	}
	p.next = idx + 1

	zlog.Debug().Msgf("playlist player step: index=%d total=%d", idx+1, len(p.steps))
	return p.steps[idx], nil
}

// readFile decodes one script step. YAML is a superset of JSON, so both
// formats go through the same decoder. An empty file scripts "no response".
func readFile(path string) (playlist.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read playlist file %s", path)
	}

	var blob playlist.Blob
	if err := yaml.Unmarshal(data, &blob); err != nil {
		return nil, errors.Wrapf(err, "failed to parse playlist file %s", path)
	}
	return blob, nil
}
