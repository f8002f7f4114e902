package privacy

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// JSONWriter writes each export as one JSON document: {"path": [...], "data": ...}.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ Writer = (*JSONWriter)(nil) // interface compliance check

func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONWriter{enc: enc}
}

type exportDocument struct {
	Path []string    `json:"path"`
	Data interface{} `json:"data"`
}

func (w *JSONWriter) Export(path []string, data interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(exportDocument{Path: path, Data: data}); err != nil {
		return errors.Wrap(err, "encoding export")
	}
	return nil
}
