package gesture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyPrototype is returned when a prototype has too few points to train from.
	ErrEmptyPrototype = errors.New("gesture: prototype needs at least two points")

	// ErrInvalidStates is returned when a prototype's state count is out of
	// range for its trajectory.
	ErrInvalidStates = errors.New("gesture: invalid state count")
	// ErrMalformedPrototype is returned when a prototype document cannot be parsed.
	ErrMalformedPrototype = errors.New("gesture: malformed prototype")
)

const (
	// DefaultStates is the state count used when a prototype does not set one.
	DefaultStates = 1

	// MaxStates bounds the state count of one model. Training allocates
	// N×N transitions per class.
	MaxStates = 64
)

// CheckStates reports whether n is a usable state count.
func CheckStates(n int) error {
	if n < 1 || n > MaxStates {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidStates, n, MaxStates)
	}
	return nil
}

// Prototype is a hand-drawn trajectory that seeds training for one class.
type Prototype struct {
	Name   string
	States int
	Points []Point
}

// Validate checks that p can be trained from.
func (p *Prototype) Validate() error {
	if err := CheckStates(p.States); err != nil {
		return fmt.Errorf("prototype %q: %w", p.Name, err)
	}
	if len(p.Points) < 2 {
		return fmt.Errorf("%w: %q has %d", ErrEmptyPrototype, p.Name, len(p.Points))
	}
	if p.States > len(p.Points) {
		return fmt.Errorf("%w: %q has %d states for %d points", ErrInvalidStates, p.Name, p.States, len(p.Points))
	}
	return nil
}

// WritePrototype serializes p as a YAML document with N and seq fields.
func WritePrototype(w io.Writer, p *Prototype) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, pt := range p.Points {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.SequenceNode,
			Style: yaml.FlowStyle,
			Content: []*yaml.Node{
				intNode(pt.X),
				intNode(pt.Y),
			},
		})
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	if p.Name != "" {
		doc.Content = append(doc.Content, strNode("name"), strNode(p.Name))
	}
	doc.Content = append(doc.Content,
		strNode("N"), intNode(p.States),
		strNode("seq"), seq,
	)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode prototype: %w", err)
	}
	return enc.Close()
}

// ReadPrototype parses a prototype document. The seq field may be a list
// of [x, y] pairs, a list of {x, y} mappings, or a mapping whose data field
// holds the coordinates flattened as x0, y0, x1, y1 and so on. A missing N
// means DefaultStates.
func ReadPrototype(r io.Reader) (*Prototype, error) {
	return DecodePrototype(r, DefaultStates)
}

// DecodePrototype is ReadPrototype with states used when N is missing.
func DecodePrototype(r io.Reader, states int) (*Prototype, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read prototype: %w", err)
	}
	if bytes.HasPrefix(data, []byte("%YAML:")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrototype, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrMalformedPrototype)
	}
	root := doc.Content[0]

	p := &Prototype{States: states}
	if v := lookup(root, "name"); v != nil {
		p.Name = v.Value
	}
	if v := lookup(root, "N"); v != nil {
		n, err := strconv.Atoi(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: N: %v", ErrMalformedPrototype, err)
		}
		p.States = n
	}

	seq := lookup(root, "seq")
	if seq == nil {
		return nil, fmt.Errorf("%w: missing seq", ErrMalformedPrototype)
	}
	if p.Points, err = decodePoints(seq); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPrototype reads a prototype from the file at path.
func LoadPrototype(path string) (*Prototype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prototype: %w", err)
	}
	defer f.Close()
	return ReadPrototype(f)
}

// LoadPrototypes reads prototype files in class order. Files without N
// get states. A prototype without a name is named after its file.
func LoadPrototypes(states int, paths ...string) ([]*Prototype, error) {
	protos := make([]*Prototype, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open prototype: %w", err)
		}
		p, err := DecodePrototype(f, states)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		protos = append(protos, p)
	}
	return protos, nil
}

// SavePrototype writes p to the file at path.
func SavePrototype(path string, p *Prototype) error {
	var buf bytes.Buffer
	if err := WritePrototype(&buf, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write prototype: %w", err)
	}
	return nil
}

func decodePoints(n *yaml.Node) ([]Point, error) {
	switch n.Kind {
	case yaml.MappingNode:
		data := lookup(n, "data")
		if data == nil || data.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: seq has no data", ErrMalformedPrototype)
		}
		if len(data.Content)%2 != 0 {
			return nil, fmt.Errorf("%w: seq data has odd length %d", ErrMalformedPrototype, len(data.Content))
		}
		points := make([]Point, 0, len(data.Content)/2)
		for i := 0; i < len(data.Content); i += 2 {
			p, err := pointOf(data.Content[i], data.Content[i+1])
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		return points, nil

	case yaml.SequenceNode:
		points := make([]Point, 0, len(n.Content))
		for i, item := range n.Content {
			var p Point
			var err error
			switch {
			case item.Kind == yaml.SequenceNode && len(item.Content) == 2:
				p, err = pointOf(item.Content[0], item.Content[1])
			case item.Kind == yaml.MappingNode:
				x, y := lookup(item, "x"), lookup(item, "y")
				if x == nil || y == nil {
					return nil, fmt.Errorf("%w: seq[%d] needs x and y", ErrMalformedPrototype, i)
				}
				p, err = pointOf(x, y)
			default:
				return nil, fmt.Errorf("%w: seq[%d] is not a point", ErrMalformedPrototype, i)
			}
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		return points, nil
	}

	return nil, fmt.Errorf("%w: seq is not a list", ErrMalformedPrototype)
}

func pointOf(x, y *yaml.Node) (Point, error) {
	px, err := strconv.Atoi(x.Value)
	if err != nil {
		return Point{}, fmt.Errorf("%w: x: %v", ErrMalformedPrototype, err)
	}
	py, err := strconv.Atoi(y.Value)
	if err != nil {
		return Point{}, fmt.Errorf("%w: y: %v", ErrMalformedPrototype, err)
	}
	return Point{X: px, Y: py}, nil
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
