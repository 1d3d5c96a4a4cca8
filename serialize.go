package postfx

import (
	"encoding/json"
	"fmt"
)

// Document is the plain-data form of a composer pipeline: the composer
// identity plus one record per pass in execution order. Pass records are
// kept raw so that custom variants registered by the host round-trip
// without postfx knowing their fields.
type Document struct {
	UUID   string            `json:"uuid"`
	Passes []json.RawMessage `json:"passes"`
}

// Document serializes the pipeline configuration. Buffers and sizes are
// runtime state and are not part of the document.
func (c *Composer) Document() (*Document, error) {
	doc := &Document{
		UUID:   c.uuid,
		Passes: make([]json.RawMessage, 0, len(c.passes)),
	}
	for _, p := range c.passes {
		rec, err := p.MarshalRecord()
		if err != nil {
			return nil, fmt.Errorf("postfx: marshal pass %s: %w", p.Type(), err)
		}
		doc.Passes = append(doc.Passes, rec)
	}
	return doc, nil
}

// MarshalJSON implements json.Marshaler on the pipeline document.
func (c *Composer) MarshalJSON() ([]byte, error) {
	doc, err := c.Document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// passTypeProbe extracts only the discriminator from a pass record.
type passTypeProbe struct {
	Type string `json:"type"`
}

// FromDocument reconstructs a composer from its serialized pipeline.
//
// The composer comes back with default 1x1 buffers; call SetSize before
// rendering. Every pass is instantiated by its type tag through the
// registry, then its flags and parameters are overwritten from the record.
// Unrecognized tags degrade to a plain render pass instead of failing, so
// documents from newer editors still load.
func FromDocument(ctx Context, doc *Document) (*Composer, error) {
	c, err := NewComposer(ctx)
	if err != nil {
		return nil, err
	}
	if doc.UUID != "" {
		c.uuid = doc.UUID
	}
	for i, raw := range doc.Passes {
		var probe passTypeProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			c.Dispose()
			return nil, fmt.Errorf("postfx: pass record %d: %w", i, err)
		}
		p := newPassForType(probe.Type)
		if err := p.UnmarshalRecord(raw); err != nil {
			c.Dispose()
			return nil, fmt.Errorf("postfx: pass record %d (%s): %w", i, probe.Type, err)
		}
		c.AddPass(p)
	}
	return c, nil
}

// UnmarshalComposer decodes a JSON pipeline document and reconstructs the
// composer. See FromDocument for the restoration semantics.
func UnmarshalComposer(ctx Context, data []byte) (*Composer, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("postfx: decode pipeline document: %w", err)
	}
	return FromDocument(ctx, &doc)
}
