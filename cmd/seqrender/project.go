package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/seqrender"
)

// project is the JSON document describing the scenes to render. The first
// scene is the one rendered; the others can be referenced by scene strips.
type project struct {
	Scenes []sceneDoc `json:"scenes"`
}

type sceneDoc struct {
	Name   string     `json:"name"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Start  int        `json:"start"`
	End    int        `json:"end"`
	FPS    float64    `json:"fps"`
	Strips []stripDoc `json:"strips"`
}

type stripDoc struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Channel     int     `json:"channel"`
	Start       int     `json:"start"`
	Length      int     `json:"length"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	Speed       float64 `json:"speed"`
	Mute        bool    `json:"mute"`

	Inputs  []string `json:"inputs"`
	Blend   string   `json:"blend"`
	Opacity *float64 `json:"opacity"`

	Crop      seqrender.Crop `json:"crop"`
	Transform struct {
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		ScaleX   float64 `json:"scale_x"`
		ScaleY   float64 `json:"scale_y"`
		Rotation float64 `json:"rotation"` // degrees
	} `json:"transform"`
	Modifiers []modifierDoc `json:"modifiers"`

	Path       string `json:"path"`
	Proxy      string `json:"proxy"`
	StartIndex int    `json:"start_index"`
	Stream     int    `json:"stream"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Opaque     bool   `json:"opaque"`

	Color       [4]float32 `json:"color"`
	Text        string     `json:"text"`
	TextSize    float64    `json:"text_size"`
	TextColor   [4]float32 `json:"text_color"`
	TextX       float64    `json:"text_x"`
	TextY       float64    `json:"text_y"`
	Fader       float64    `json:"fader"`
	DefaultFade bool       `json:"default_fade"`
	Blur        float64    `json:"blur"`

	Strips []stripDoc `json:"strips"` // meta
	Scene  string     `json:"scene"`
}

type modifierDoc struct {
	Type     string     `json:"type"`
	Mute     bool       `json:"mute"`
	Bright   float64    `json:"bright"`
	Contrast float64    `json:"contrast"`
	Lift     [3]float64 `json:"lift"`
	Gamma    [3]float64 `json:"gamma"`
	Gain     [3]float64 `json:"gain"`
}

var modifierTypes = map[string]seqrender.ModifierType{
	"bright_contrast": seqrender.ModifierBrightContrast,
	"color_balance":   seqrender.ModifierColorBalance,
}

// loadProject decodes a project and returns its scenes, main scene first.
func loadProject(r io.Reader) ([]*seqrender.Scene, error) {
	var p project
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if len(p.Scenes) == 0 {
		return nil, errors.New("project: no scenes")
	}

	scenes := make([]*seqrender.Scene, len(p.Scenes))
	byName := make(map[string]*seqrender.Scene, len(p.Scenes))
	for i, d := range p.Scenes {
		if d.Width <= 0 || d.Height <= 0 {
			return nil, fmt.Errorf("project: scene %q: %w", d.Name, seqrender.ErrInvalidDimensions)
		}
		sc := seqrender.NewScene(d.Name, d.Width, d.Height)
		if d.Start != 0 || d.End != 0 {
			sc.Start, sc.End = d.Start, d.End
		}
		if d.FPS > 0 {
			sc.FPS = d.FPS
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("project: duplicate scene %q", d.Name)
		}
		scenes[i], byName[d.Name] = sc, sc
	}
	for i, d := range p.Scenes {
		tl, err := buildTimeline(d.Strips, byName)
		if err != nil {
			return nil, fmt.Errorf("project: scene %q: %w", d.Name, err)
		}
		scenes[i].Timeline = tl
	}
	return scenes, nil
}

func buildTimeline(docs []stripDoc, scenes map[string]*seqrender.Scene) (*seqrender.Timeline, error) {
	strips := make([]*seqrender.Strip, len(docs))
	byName := make(map[string]*seqrender.Strip, len(docs))
	for i := range docs {
		s, err := buildStrip(&docs[i], scenes)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate strip %q", s.Name)
		}
		strips[i], byName[s.Name] = s, s
	}
	for i, d := range docs {
		if len(d.Inputs) > 3 {
			return nil, fmt.Errorf("strip %q: %d inputs, at most 3", d.Name, len(d.Inputs))
		}
		in := []**seqrender.Strip{&strips[i].Input1, &strips[i].Input2, &strips[i].Input3}
		for k, name := range d.Inputs {
			src, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("strip %q: unknown input %q", d.Name, name)
			}
			*in[k] = src
		}
	}
	return seqrender.NewTimeline(strips...), nil
}

func buildStrip(d *stripDoc, scenes map[string]*seqrender.Scene) (*seqrender.Strip, error) {
	typ, err := seqrender.ParseStripType(d.Type)
	if err != nil {
		return nil, fmt.Errorf("strip %q: %w", d.Name, err)
	}
	s := seqrender.NewStrip(d.Name, typ, d.Channel, d.Start, d.Length)
	s.StartOffset, s.EndOffset = d.StartOffset, d.EndOffset
	s.Speed = d.Speed
	s.Mute = d.Mute
	if d.Blend != "" {
		if s.Blend, err = seqrender.ParseBlendMode(d.Blend); err != nil {
			return nil, fmt.Errorf("strip %q: %w", d.Name, err)
		}
	}
	if d.Opacity != nil {
		s.Opacity = *d.Opacity
	}

	s.Crop = d.Crop
	s.Transform = seqrender.Transform{
		OffsetX:  d.Transform.X,
		OffsetY:  d.Transform.Y,
		ScaleX:   d.Transform.ScaleX,
		ScaleY:   d.Transform.ScaleY,
		Rotation: d.Transform.Rotation * math.Pi / 180,
	}
	for _, m := range d.Modifiers {
		mt, ok := modifierTypes[m.Type]
		if !ok {
			return nil, fmt.Errorf("strip %q: unknown modifier %q", d.Name, m.Type)
		}
		s.Modifiers = append(s.Modifiers, seqrender.Modifier{
			Type: mt, Mute: m.Mute,
			Bright: m.Bright, Contrast: m.Contrast,
			Lift: m.Lift, Gamma: m.Gamma, Gain: m.Gain,
		})
	}

	s.Media = seqrender.Media{
		Path:       d.Path,
		ProxyPath:  d.Proxy,
		StartIndex: d.StartIndex,
		Stream:     d.Stream,
		Width:      d.Width,
		Height:     d.Height,
		Opaque:     d.Opaque,
	}
	s.Color = d.Color
	s.Text = seqrender.TextParams{Text: d.Text, Size: d.TextSize, Color: d.TextColor, X: d.TextX, Y: d.TextY}
	s.EffectFader = d.Fader
	s.DefaultFade = d.DefaultFade
	s.BlurSize = d.Blur

	switch typ {
	case seqrender.TypeMeta:
		if s.Meta, err = buildTimeline(d.Strips, scenes); err != nil {
			return nil, fmt.Errorf("meta %q: %w", d.Name, err)
		}
	case seqrender.TypeScene:
		sc, ok := scenes[d.Scene]
		if !ok {
			return nil, fmt.Errorf("strip %q: unknown scene %q", d.Name, d.Scene)
		}
		s.Scene = sc
	}
	return s, nil
}
