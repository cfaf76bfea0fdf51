package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/ValentinKolb/dSM/lib/smap"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IEntrySerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IEntrySerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEntrySerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(e smap.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, e *smap.Entry) error {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	return dec.Decode(e)
}
