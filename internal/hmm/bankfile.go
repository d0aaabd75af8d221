package hmm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ErrMalformedModel is returned when a persisted model bank is incomplete or inconsistent.
var ErrMalformedModel = errors.New("hmm: malformed model")

// matrixTag marks a serialized dense matrix.
const matrixTag = "!!opencv-matrix"

// Bank document keys.
const (
	keyTotal  = "total"
	keyModels = "models"
	keyN      = "N"
	keyA      = "A"
	keyB      = "b"
	keyPi     = "pi"
)

// WriteBank serializes b as a YAML document with a total count and an
// ordered list of models.
func WriteBank(w io.Writer, b Bank) error {
	models := &yaml.Node{Kind: yaml.SequenceNode}
	for i, m := range b {
		if err := m.CheckShape(); err != nil {
			return fmt.Errorf("failed to write model %d: %w", i, err)
		}
		models.Content = append(models.Content, mapping(
			keyN, intNode(m.N),
			keyPi, matrixNode(m.Pi),
			keyA, matrixNode(m.A),
			keyB, matrixNode(m.B),
		))
	}

	doc := mapping(
		keyTotal, intNode(len(b)),
		keyModels, models,
	)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode model bank: %w", err)
	}
	return enc.Close()
}

// ReadBank parses a model bank document. Both the list layout written by
// WriteBank and the indexed layout with one hmm-NN record per model are
// accepted. Any missing field, short matrix or inconsistent size is an error.
func ReadBank(r io.Reader) (Bank, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bank: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(stripDirective(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrMalformedModel)
	}
	root := doc.Content[0]

	total, err := intField(root, keyTotal)
	if err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total %d", ErrMalformedModel, total)
	}

	var records []*yaml.Node
	if list := lookup(root, keyModels); list != nil {
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: %s is not a list", ErrMalformedModel, keyModels)
		}
		records = list.Content
		if len(records) != total {
			return nil, fmt.Errorf("%w: total is %d but %d models present", ErrMalformedModel, total, len(records))
		}
	} else {
		for i := 0; i < total; i++ {
			key := LegacyKey(i)
			rec := lookup(root, key)
			if rec == nil {
				return nil, fmt.Errorf("%w: missing %s", ErrMalformedModel, key)
			}
			records = append(records, rec)
		}
	}

	bank := make(Bank, 0, total)
	for i, rec := range records {
		m, err := decodeModel(rec)
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		if i > 0 && m.M != bank[0].M {
			return nil, fmt.Errorf("%w: model %d has %d symbols, model 0 has %d", ErrMalformedModel, i, m.M, bank[0].M)
		}
		bank = append(bank, m)
	}
	return bank, nil
}

// LegacyKey returns the record name of model i in the indexed layout.
func LegacyKey(i int) string {
	return fmt.Sprintf("hmm-%02d", i)
}

// SaveBank writes b to the file at path.
func SaveBank(path string, b Bank) error {
	var buf bytes.Buffer
	if err := WriteBank(&buf, b); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write model bank: %w", err)
	}
	return nil
}

// LoadBank reads a model bank from the file at path.
func LoadBank(path string) (Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model bank: %w", err)
	}
	defer f.Close()
	return ReadBank(f)
}

// stripDirective drops a leading "%YAML:1.0" line, which is not valid YAML.
func stripDirective(data []byte) []byte {
	if bytes.HasPrefix(data, []byte("%YAML:")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return data[i+1:]
		}
		return nil
	}
	return data
}

func decodeModel(rec *yaml.Node) (*Model, error) {
	if rec.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: record is not a mapping", ErrMalformedModel)
	}

	n, err := intField(rec, keyN)
	if err != nil {
		return nil, err
	}
	pi, err := matrixField(rec, keyPi)
	if err != nil {
		return nil, err
	}
	a, err := matrixField(rec, keyA)
	if err != nil {
		return nil, err
	}
	b, err := matrixField(rec, keyB)
	if err != nil {
		return nil, err
	}

	_, symbols := b.Dims()
	m := &Model{N: n, M: symbols, A: a, B: b, Pi: pi}
	if err := m.CheckShape(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	return m, nil
}

func intField(n *yaml.Node, key string) (int, error) {
	v := lookup(n, key)
	if v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedModel, key)
	}
	if v.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%w: %s is not a scalar", ErrMalformedModel, key)
	}
	i, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedModel, key, err)
	}
	return i, nil
}

func matrixField(n *yaml.Node, key string) (*mat.Dense, error) {
	v := lookup(n, key)
	if v == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedModel, key)
	}
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s is not a matrix", ErrMalformedModel, key)
	}

	rows, err := intField(v, "rows")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	cols, err := intField(v, "cols")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %s is %dx%d", ErrMalformedModel, key, rows, cols)
	}
	if dt := lookup(v, "dt"); dt != nil && dt.Value != "d" && dt.Value != "f" {
		return nil, fmt.Errorf("%w: %s has unsupported type %q", ErrMalformedModel, key, dt.Value)
	}

	data := lookup(v, "data")
	if data == nil || data.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s has no data", ErrMalformedModel, key)
	}
	if len(data.Content) != rows*cols {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrMalformedModel, key, len(data.Content), rows*cols)
	}

	values := make([]float64, len(data.Content))
	for i, c := range data.Content {
		f, err := parseFloat(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedModel, key, i, err)
		}
		values[i] = f
	}
	return mat.NewDense(rows, cols, values), nil
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func mapping(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv[i].(string)},
			kv[i+1].(*yaml.Node),
		)
	}
	return n
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}

func matrixNode(d *mat.Dense) *yaml.Node {
	rows, cols := d.Dims()
	data := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Content = append(data.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: formatFloat(d.At(i, j))})
		}
	}

	n := mapping(
		"rows", intNode(rows),
		"cols", intNode(cols),
		"dt", &yaml.Node{Kind: yaml.ScalarNode, Value: "d"},
		"data", data,
	)
	n.Tag = matrixTag
	return n
}

// formatFloat renders v with the shortest representation that parses back
// to the same float64.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".NaN"
	case math.IsInf(v, 1):
		return ".Inf"
	case math.IsInf(v, -1):
		return "-.Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case ".nan":
		return math.NaN(), nil
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
