package model

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/davecgh/go-xdr/xdr2"
	"github.com/google/uuid"
)

// record is the XDR wire form of a Feature.
type record struct {
	ID        string
	Layer     string
	Name      string
	Lat       float64
	Lon       float64
	Props     []prop
	CreatedAt int64
}

type prop struct {
	Key   string
	Value string
}

// Marshal encodes f as XDR. Props are written in key order so equal
// features encode to equal bytes.
func Marshal(f Feature) ([]byte, error) {
	rec := record{
		ID:        f.ID.String(),
		Layer:     f.Layer,
		Name:      f.Name,
		Lat:       f.Lat,
		Lon:       f.Lon,
		CreatedAt: f.CreatedAt.UnixNano(),
	}
	for k, v := range f.Props {
		rec.Props = append(rec.Props, prop{Key: k, Value: v})
	}
	sort.Slice(rec.Props, func(i, j int) bool {
		return rec.Props[i].Key < rec.Props[j].Key
	})

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &rec); err != nil {
		return nil, fmt.Errorf("xdr marshal feature %s: %w", f.ID, err)
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte) (Feature, error) {
	var rec record
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return Feature{}, fmt.Errorf("xdr unmarshal feature: %w", err)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return Feature{}, fmt.Errorf("parse feature id %q: %w", rec.ID, err)
	}
	f := Feature{
		ID:        id,
		Layer:     rec.Layer,
		Name:      rec.Name,
		Lat:       rec.Lat,
		Lon:       rec.Lon,
		CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
	}
	if len(rec.Props) > 0 {
		f.Props = make(map[string]string, len(rec.Props))
		for _, p := range rec.Props {
			f.Props[p.Key] = p.Value
		}
	}
	return f, nil
}
