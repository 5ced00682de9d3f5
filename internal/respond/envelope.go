// Package respond normalizes every API outcome, success or failure, into a
// single wire shape:
//
//	{ "success": bool, "data": any|null, "meta": {}, "error": {code, message, details}|null }
//
// Data, meta and error details pass through a recursive key/value transform
// before emission (see Transformer).
package respond

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta"`
	Error   *ErrorBody     `json:"error"`
}

// ErrorBody describes a failure inside the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// Formatter builds envelopes. It owns the transformer and, through it, the
// process-wide key cache.
type Formatter struct {
	tr *Transformer
}

func NewFormatter(cache *KeyCache) *Formatter {
	if cache == nil {
		cache = NewKeyCache()
	}
	return &Formatter{tr: NewTransformer(cache)}
}

// Transformer exposes the underlying transformer for callers that need the
// raw transform.
func (f *Formatter) Transformer() *Transformer { return f.tr }

// Success wraps data and meta into a success envelope. A *Page is unwrapped:
// its items become data and its pagination block is merged into the outer
// meta rather than nested under data.
func (f *Formatter) Success(data any, meta map[string]any) Envelope {
	outMeta := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		outMeta[f.tr.keys.Camel(k)] = f.tr.Transform(v)
	}

	if page, ok := data.(Page); ok {
		data = &page
	}
	if page, ok := data.(*Page); ok && page != nil {
		outMeta["pagination"] = page.pagination()
		data = page.Data
	}

	return Envelope{
		Success: true,
		Data:    f.tr.Transform(data),
		Meta:    outMeta,
		Error:   nil,
	}
}

// Error wraps a failure into an error envelope. Data is always null and meta
// is always empty on failure.
func (f *Formatter) Error(message, code string, details map[string]any) Envelope {
	var d any
	if details != nil {
		d = f.tr.Transform(details)
	}
	return Envelope{
		Success: false,
		Data:    nil,
		Meta:    map[string]any{},
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: d,
		},
	}
}
