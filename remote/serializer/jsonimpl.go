package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dSM/lib/smap"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IEntrySerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IEntrySerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IEntrySerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(e smap.Entry) ([]byte, error) {
	return json.Marshal(e)
}

func (j jsonSerializerImpl) Deserialize(b []byte, e *smap.Entry) error {
	return json.Unmarshal(b, e)
}
