package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params is the dynamic request-data form. Values are restricted to a closed
// set of kinds: nil, bool, string, numeric types, time.Time, File, Blob,
// []byte, image.Image, nested Params or map[string]any, and slices or arrays
// of these. Anything else yields an EncodeError.
//
// For typed request bodies, pass a struct instead; it is JSON-encoded as-is.
type Params map[string]any

// File marks a value for upload as a multipart file part. Name is the
// reported filename; "file" when empty.
type File struct {
	Name    string
	Content io.Reader
}

// Blob marks raw bytes for upload as a multipart file part. The part's
// filename extension is derived from the MIME subtype, e.g. "image/jpeg"
// uploads as "blob.jpeg".
type Blob struct {
	MIME string
	Data []byte
}

// FormData is an ordered multipart/form-data container. Pass one as request
// data to send a prebuilt form unchanged; the encoder performs no inspection
// or conversion on it.
type FormData struct {
	fields []formField
}

type formField struct {
	name  string
	value string
	file  *filePart
}

type filePart struct {
	filename    string
	contentType string
	content     io.Reader
}

// NewFormData returns an empty form.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a plain field to the form.
func (f *FormData) Append(name, value string) {
	f.fields = append(f.fields, formField{name: name, value: value})
}

// AppendFile adds a file part to the form. An empty contentType lets the
// multipart writer pick the default.
func (f *FormData) AppendFile(name, filename, contentType string, content io.Reader) {
	f.fields = append(f.fields, formField{
		name: name,
		file: &filePart{filename: filename, contentType: contentType, content: content},
	})
}

// Encode renders the form as a multipart/form-data body and returns the body
// reader along with its Content-Type (including the boundary).
func (f *FormData) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fld := range f.fields {
		if fld.file == nil {
			if err := w.WriteField(fld.name, fld.value); err != nil {
				return nil, "", fmt.Errorf("write field %q: %w", fld.name, err)
			}
			continue
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(fld.name), escapeQuotes(fld.file.filename)))
		if fld.file.contentType != "" {
			header.Set("Content-Type", fld.file.contentType)
		}

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", fld.name, err)
		}
		if fld.file.content != nil {
			if _, err := io.Copy(part, fld.file.content); err != nil {
				return nil, "", fmt.Errorf("copy part %q: %w", fld.name, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// payload is the encoded form of request data, ready for the dispatcher.
// Exactly one of json, form, or query is set; a nil *payload means the
// request carries no body at all.
type payload struct {
	json  []byte    // JSON body bytes
	form  *FormData // multipart body
	query string    // URL-escaped JSON appended to the query string (GET)
}

// encodePayload turns request data into its wire form:
//
//   - nil data produces no payload;
//   - a *FormData passes through untouched;
//   - Params sent with a non-GET method become a multipart form when any
//     value requires file encoding, and JSON otherwise;
//   - anything else is JSON-encoded, with Params trees getting time.Time
//     values converted to Unix seconds;
//   - a payload that serializes to the empty JSON object is dropped;
//   - GET payloads ride the query string, URL-escaped.
func encodePayload(method string, data any) (*payload, error) {
	if data == nil {
		return nil, nil
	}
	if form, ok := data.(*FormData); ok {
		return &payload{form: form}, nil
	}

	params, isParams := asParams(data)

	if isParams && method != http.MethodGet {
		form := NewFormData()
		worthy, err := appendFormParams(form, "", params, newWalkGuard())
		if err != nil {
			return nil, err
		}
		if worthy {
			return &payload{form: form}, nil
		}
	}

	var body []byte
	var err error
	if isParams {
		norm, nerr := normalizeValue("", params, newWalkGuard())
		if nerr != nil {
			return nil, nerr
		}
		body, err = json.Marshal(norm)
	} else {
		body, err = json.Marshal(data)
	}
	if err != nil {
		return nil, &EncodeError{Reason: err.Error()}
	}

	if string(body) == "{}" {
		return nil, nil
	}
	if method == http.MethodGet {
		return &payload{query: url.QueryEscape(string(body))}, nil
	}
	return &payload{json: body}, nil
}

func asParams(data any) (map[string]any, bool) {
	switch v := data.(type) {
	case Params:
		return v, true
	case map[string]any:
		return v, true
	}
	return nil, false
}

// walkGuard tracks the containers on the current walk path so circular
// Params trees fail with an EncodeError instead of recursing forever.
type walkGuard struct {
	seen map[uintptr]struct{}
}

func newWalkGuard() *walkGuard {
	return &walkGuard{seen: make(map[uintptr]struct{})}
}

func (g *walkGuard) enter(field string, v reflect.Value) error {
	p := v.Pointer()
	if _, ok := g.seen[p]; ok {
		return &EncodeError{Field: field, Reason: "circular reference"}
	}
	g.seen[p] = struct{}{}
	return nil
}

func (g *walkGuard) leave(v reflect.Value) {
	delete(g.seen, v.Pointer())
}

// appendFormParams walks a Params tree appending fields to the form in
// sorted key order. Nested maps use bracket names ("parent[child]") and
// slices use indexed names ("field[0]"). It reports whether any value
// actually required file encoding.
func appendFormParams(form *FormData, prefix string, params map[string]any, guard *walkGuard) (bool, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	worthy := false
	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "[" + key + "]"
		}
		w, err := appendFormValue(form, name, params[key], guard)
		if err != nil {
			return false, err
		}
		worthy = worthy || w
	}
	return worthy, nil
}

// appendFormValue appends a single value under its bracket-notation name,
// reporting whether it required file encoding.
func appendFormValue(form *FormData, name string, value any, guard *walkGuard) (bool, error) {
	if value == nil {
		return false, nil
	}
	if s, ok := formatScalar(value); ok {
		form.Append(name, s)
		return false, nil
	}

	switch v := value.(type) {
	case time.Time:
		form.Append(name, strconv.FormatInt(v.Unix(), 10))
		return false, nil

	case File:
		filename := v.Name
		if filename == "" {
			filename = "file"
		}
		form.AppendFile(name, filename, "", v.Content)
		return true, nil

	case *File:
		if v == nil {
			return false, nil
		}
		return appendFormValue(form, name, *v, guard)

	case Blob:
		contentType := v.MIME
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		form.AppendFile(name, blobFilename(v.MIME), contentType, bytes.NewReader(v.Data))
		return true, nil

	case []byte:
		form.AppendFile(name, "blob", "application/octet-stream", bytes.NewReader(v))
		return true, nil

	case image.Image:
		var buf bytes.Buffer
		if err := png.Encode(&buf, v); err != nil {
			return false, &EncodeError{Field: name, Reason: "encode png: " + err.Error()}
		}
		form.AppendFile(name, "canvas.png", "image/png", &buf)
		return true, nil

	case Params:
		return appendFormMap(form, name, v, guard)

	case map[string]any:
		return appendFormMap(form, name, v, guard)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Kind() == reflect.Slice {
			if err := guard.enter(name, rv); err != nil {
				return false, err
			}
			defer guard.leave(rv)
		}
		worthy := false
		for i := 0; i < rv.Len(); i++ {
			w, err := appendFormValue(form, fmt.Sprintf("%s[%d]", name, i), rv.Index(i).Interface(), guard)
			if err != nil {
				return false, err
			}
			worthy = worthy || w
		}
		return worthy, nil
	}

	return false, &EncodeError{Field: name, Reason: fmt.Sprintf("unsupported kind %T", value)}
}

func appendFormMap(form *FormData, name string, m map[string]any, guard *walkGuard) (bool, error) {
	rv := reflect.ValueOf(m)
	if err := guard.enter(name, rv); err != nil {
		return false, err
	}
	defer guard.leave(rv)
	return appendFormParams(form, name, m, guard)
}

// normalizeValue prepares a Params tree for JSON encoding: time.Time values
// become Unix seconds, nested containers are walked with cycle detection, and
// file-like values are rejected since they cannot ride a JSON body.
func normalizeValue(field string, value any, guard *walkGuard) (any, error) {
	if value == nil {
		return nil, nil
	}
	if _, ok := formatScalar(value); ok {
		return value, nil
	}

	switch v := value.(type) {
	case time.Time:
		return v.Unix(), nil

	case File, *File, Blob, []byte:
		return nil, &EncodeError{Field: field, Reason: fmt.Sprintf("%T requires multipart encoding; use a non-GET method", value)}

	case image.Image:
		return nil, &EncodeError{Field: field, Reason: "image requires multipart encoding; use a non-GET method"}

	case Params:
		return normalizeMap(field, v, guard)

	case map[string]any:
		return normalizeMap(field, v, guard)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Kind() == reflect.Slice {
			if err := guard.enter(field, rv); err != nil {
				return nil, err
			}
			defer guard.leave(rv)
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			nv, err := normalizeValue(fmt.Sprintf("%s[%d]", field, i), rv.Index(i).Interface(), guard)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	}

	return nil, &EncodeError{Field: field, Reason: fmt.Sprintf("unsupported kind %T", value)}
}

func normalizeMap(field string, m map[string]any, guard *walkGuard) (any, error) {
	rv := reflect.ValueOf(m)
	if err := guard.enter(field, rv); err != nil {
		return nil, err
	}
	defer guard.leave(rv)

	out := make(map[string]any, len(m))
	for k, v := range m {
		child := k
		if field != "" {
			child = field + "[" + k + "]"
		}
		nv, err := normalizeValue(child, v, guard)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

// formatScalar renders the scalar kinds of the closed Params set as form
// field values. The boolean result doubles as the set membership test for
// the JSON path.
func formatScalar(value any) (string, bool) {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v), true
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

func blobFilename(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return "blob." + sub
	}
	return "blob"
}
