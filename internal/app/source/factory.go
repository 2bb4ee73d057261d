// Package source builds the playlist source named in the configuration.
package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/app/playlist"
	"github.com/osa030/playlistd/internal/infra/config"
	"github.com/osa030/playlistd/internal/infra/player"
	"github.com/osa030/playlistd/internal/infra/remote"
)

// HTTPSourceConfig holds the settings of an "http" source.
type HTTPSourceConfig struct {
	URL             string            `mapstructure:"url" validate:"required,url"`
	TimeoutMs       int               `mapstructure:"timeout_ms" default:"10000" validate:"gte=1"`
	RateLimitPerSec *float64          `mapstructure:"rate_limit_per_sec" default:"1" validate:"gte=0"` // 0 disables limiting
	Headers         map[string]string `mapstructure:"headers"`
	TokenURL        string            `mapstructure:"token_url" validate:"omitempty,url"`
	ClientID        string            `mapstructure:"client_id" validate:"required_with=TokenURL"`
	ClientSecret    string            `mapstructure:"client_secret" validate:"required_with=TokenURL"`
	Scopes          []string          `mapstructure:"scopes"`
}

// PlayerSourceConfig holds the settings of a "player" source.
type PlayerSourceConfig struct {
	Files []string `mapstructure:"files" validate:"required,min=1,dive,required"`
	Loop  bool     `mapstructure:"loop"`
}

// NewFromConfig creates the playlist source described by cfg.
func NewFromConfig(ctx context.Context, cfg config.SourceConfig) (playlist.Source, error) {
	zlog.Debug().Msgf("creating playlist source: type=%s", cfg.Type)

	switch cfg.Type {
	case "http":
		var sc HTTPSourceConfig
		if err := decode(cfg.Settings, &sc); err != nil {
			return nil, errors.Wrap(err, "invalid http source settings")
		}
		client, err := remote.New(ctx, remote.Config{
			URL:          sc.URL,
			Headers:      sc.Headers,
			Timeout:      time.Duration(sc.TimeoutMs) * time.Millisecond,
			RatePerSec:   *sc.RateLimitPerSec,
			TokenURL:     sc.TokenURL,
			ClientID:     sc.ClientID,
			ClientSecret: sc.ClientSecret,
			Scopes:       sc.Scopes,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create http source")
		}
		zlog.Info().Msgf("registered playlist source: type=http url=%s", sc.URL)
		return client, nil

	case "player":
		var sc PlayerSourceConfig
		if err := decode(cfg.Settings, &sc); err != nil {
			return nil, errors.Wrap(err, "invalid player source settings")
		}
		p, err := player.Load(sc.Files, sc.Loop)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create player source")
		}
		zlog.Info().Msgf("registered playlist source: type=player files=%d", len(sc.Files))
		return p, nil

	default:
		return nil, errors.Newf("unsupported source type: %s", cfg.Type)
	}
}

// decode fills out from raw settings, applies defaults and validates.
func decode(settings map[string]any, out any) error {
	dc, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := dc.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
