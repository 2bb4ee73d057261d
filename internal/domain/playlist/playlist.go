// Package playlist provides the Playlist domain entity.
package playlist

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"math/big"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Blob is the opaque structured content of a playlist as exchanged with
// sources and stores. A nil Blob means "no response"; a non-nil Blob with no
// keys is the explicit "no change" signal from a source.
type Blob map[string]any

// Origin tells where a playlist came from.
type Origin int

const (
	OriginRemote Origin = iota // Received from a source
	OriginDisk                 // Loaded from the local store
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Playlist is an immutable cached configuration bundle.
type Playlist struct {
	content Blob
	origin  Origin
}

// New builds a playlist from content. The content is copied into a canonical
// form so that equal documents compare equal regardless of how they were
// decoded.
func New(content Blob, origin Origin) (*Playlist, error) {
	normalized, err := normalize(content)
	if err != nil {
		return nil, err
	}
	return &Playlist{content: normalized, origin: origin}, nil
}

// Decode parses a JSON object into a Blob. Numbers are kept as json.Number
// so integers above 2^53 survive. "null" decodes to a nil Blob.
func Decode(data []byte) (Blob, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var blob Blob
	if err := dec.Decode(&blob); err != nil {
		return nil, errors.Wrap(err, "failed to decode playlist")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after playlist object")
	}
	return blob, nil
}

// Blank returns the empty playlist used while the feature is disabled.
func Blank(origin Origin) *Playlist {
	return &Playlist{content: Blob{}, origin: origin}
}

// Origin returns where the playlist came from.
func (p *Playlist) Origin() Origin {
	return p.origin
}

// FromDisk reports whether the playlist was loaded from the local store.
func (p *Playlist) FromDisk() bool {
	return p.origin == OriginDisk
}

// Content returns a deep copy of the playlist content.
func (p *Playlist) Content() Blob {
	// content is already canonical, so a round trip cannot fail
	c, _ := normalize(p.content)
	return c
}

// Equal reports whether both playlists carry the same content. Origin is not
// part of equality.
func (p *Playlist) Equal(other *Playlist) bool {
	if p == nil || other == nil {
		return p == other
	}
	return reflect.DeepEqual(p.content, other.content)
}

// MarshalJSON encodes the playlist content.
func (p *Playlist) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.content)
}

// Pretty returns the content as indented JSON.
func (p *Playlist) Pretty() string {
	data, err := json.Marshal(p.content)
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// normalize converts content into the shape Decode produces, with numbers in
// canonical form, which makes reflect.DeepEqual a semantic comparison.
func normalize(content Blob) (Blob, error) {
	if content == nil {
		return Blob{}, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode playlist content")
	}
	out, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode playlist content")
	}
	for k, v := range out {
		out[k] = canonicalize(v)
	}
	return out, nil
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = canonicalize(e)
		}
	case []any:
		for i, e := range t {
			t[i] = canonicalize(e)
		}
	case json.Number:
		return canonicalNumber(t)
	}
	return v
}

// canonicalNumber spells equal numbers the same way: 1, 1.0 and 1e0 all
// become 1. Integer literals of any size are kept exact.
func canonicalNumber(n json.Number) json.Number {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return json.Number(strconv.FormatInt(i, 10))
	}
	if b, ok := new(big.Int).SetString(s, 10); ok {
		return json.Number(b.String())
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return n
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}
