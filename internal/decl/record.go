package decl

import (
	"encoding/json"
	"fmt"

	"github.com/kpumuk/swift-weaver/internal/text"
)

// Record is one declaration reported by a structural parser. It is consumed by
// Parse and not retained.
type Record struct {
	Kind   Kind
	Offset text.ByteOffset
	// BodyOffset is meaningful only when HasBody is set; it points just past the
	// body delimiter.
	BodyOffset    text.ByteOffset
	HasBody       bool
	AnnotatedForm string
	TypeName      string
	// FilePath, when set, names the file the offsets refer to.
	FilePath string
}

type sourceKitRecord struct {
	Kind          string `json:"key.kind"`
	Offset        *int64 `json:"key.offset"`
	BodyOffset    *int64 `json:"key.bodyoffset,omitempty"`
	AnnotatedForm string `json:"key.annotated_decl,omitempty"`
	TypeName      string `json:"key.typename,omitempty"`
	FilePath      string `json:"key.filepath,omitempty"`
}

// UnmarshalJSON decodes a SourceKit declaration dictionary ("key.kind",
// "key.offset", "key.bodyoffset", "key.annotated_decl", "key.typename",
// "key.filepath"). Unknown keys are ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw sourceKitRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, ok := ParseKind(raw.Kind)
	if !ok {
		return fmt.Errorf("unknown declaration kind %q", raw.Kind)
	}
	if raw.Offset == nil {
		return fmt.Errorf("declaration %q: missing key.offset", raw.Kind)
	}

	*r = Record{
		Kind:          kind,
		Offset:        text.ByteOffset(*raw.Offset),
		AnnotatedForm: raw.AnnotatedForm,
		TypeName:      raw.TypeName,
		FilePath:      raw.FilePath,
	}
	if raw.BodyOffset != nil {
		r.BodyOffset = text.ByteOffset(*raw.BodyOffset)
		r.HasBody = true
	}
	return nil
}

// MarshalJSON encodes the record with SourceKit dictionary keys.
func (r Record) MarshalJSON() ([]byte, error) {
	offset := int64(r.Offset)
	raw := sourceKitRecord{
		Kind:          r.Kind.String(),
		Offset:        &offset,
		AnnotatedForm: r.AnnotatedForm,
		TypeName:      r.TypeName,
		FilePath:      r.FilePath,
	}
	if r.HasBody {
		body := int64(r.BodyOffset)
		raw.BodyOffset = &body
	}
	return json.Marshal(raw)
}
