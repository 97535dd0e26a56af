package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/schemaguard/internal/errs"
	"github.com/deppfellow/schemaguard/internal/validation"
)

// NewRequestDocument builds the request document validated by schema routes:
//
//	{
//	  "body":    <decoded JSON or form body, absent when empty>,
//	  "query":   {"name": "value" | ["v1", "v2"]},
//	  "params":  {"id": "42"},
//	  "headers": {"content-type": "application/json"},
//	  "method":  "POST",
//	  "path":    "/orders/42"
//	}
//
// At most maxBytes of the body are read; the body is restored afterwards so
// handlers can read it again. Bodies over the limit are a 413, malformed JSON
// is a 400.
func NewRequestDocument(c echo.Context, maxBytes int64) (validation.Request, error) {
	req := c.Request()

	doc := validation.Request{
		"query":   values(c.QueryParams(), false),
		"params":  params(c),
		"headers": values(req.Header, true),
		"method":  req.Method,
		"path":    req.URL.Path,
	}

	body, err := readBody(req, maxBytes)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return doc, nil
	}

	if isForm(req.Header.Get(echo.HeaderContentType)) {
		form, err := c.FormParams()
		if err != nil {
			return nil, errs.NewBadRequestError("Malformed form body", nil, nil)
		}
		doc["body"] = values(form, false)
		return doc, nil
	}

	decoded, err := decodeJSON(body)
	if err != nil {
		return nil, errs.NewBadRequestError("Malformed JSON body", nil, nil)
	}
	doc["body"] = decoded

	return doc, nil
}

// GetRequestDocument returns the document stored by a schema route, after
// defaults and (in inject mode) failures were applied.
func GetRequestDocument(c echo.Context) validation.Request {
	if doc, ok := c.Get(RequestDocumentKey).(validation.Request); ok {
		return doc
	}
	return nil
}

func readBody(req *http.Request, maxBytes int64) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBytes+1))
	_ = req.Body.Close()
	if err != nil {
		return nil, errs.NewBadRequestError("Unreadable request body", nil, nil)
	}
	if int64(len(body)) > maxBytes {
		return nil, errs.New(http.StatusRequestEntityTooLarge, "Request body too large")
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// decodeJSON keeps numbers as json.Number so large integers survive, and
// rejects trailing data after the first value.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func isForm(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == echo.MIMEApplicationForm || mediaType == echo.MIMEMultipartForm
}

// values flattens multi-valued maps: one value stays a string, repeated
// keys become a list.
func values(in map[string][]string, lowerKeys bool) map[string]any {
	out := make(map[string]any, len(in))
	for key, vs := range in {
		if lowerKeys {
			key = strings.ToLower(key)
		}

		switch len(vs) {
		case 0:
			continue
		case 1:
			out[key] = vs[0]
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[key] = list
		}
	}
	return out
}

func params(c echo.Context) map[string]any {
	names := c.ParamNames()
	vals := c.ParamValues()

	out := make(map[string]any, len(names))
	for i, name := range names {
		if i < len(vals) {
			out[name] = vals[i]
		}
	}
	return out
}
