package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode renders b in the persisted cache format:
//
//	{"config":{...},"banners":[...],"produtos":[...],"lastSync":"RFC3339"}
func Encode(b *Bundle) ([]byte, error) {
	cfg, err := json.Marshal(b.Config)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	banners, err := json.Marshal(nonNil(b.Banners))
	if err != nil {
		return nil, errors.Wrap(err, "marshal banners")
	}
	products, err := json.Marshal(nonNil(b.Products))
	if err != nil {
		return nil, errors.Wrap(err, "marshal products")
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("config")
	e.Raw(cfg)
	e.FieldStart("banners")
	e.Raw(banners)
	e.FieldStart("produtos")
	e.Raw(products)
	e.FieldStart("lastSync")
	e.Str(b.SyncedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes(), nil
}

// Decode parses a persisted bundle. Any malformed input, or a blob missing
// its config, yields an error matching ErrCorrupt.
func Decode(data []byte) (*Bundle, error) {
	var (
		b         Bundle
		hasConfig bool
	)
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "config":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			hasConfig = true
			return json.Unmarshal(raw, &b.Config)
		case "banners":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &b.Banners)
		case "produtos":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &b.Products)
		case "lastSync":
			s, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return err
			}
			b.SyncedAt = t
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("decode bundle: %w: %w", ErrCorrupt, err)
	}
	if !hasConfig {
		return nil, errors.Wrap(ErrCorrupt, "decode bundle: missing config")
	}
	return &b, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
