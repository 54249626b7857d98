package xhr

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/adamwoolhether/xhr/headers"
	"github.com/adamwoolhether/xhr/transport"
)

// Response is a completed exchange. It is not modified after construction.
type Response struct {
	// Data is a string for text responses, the decoded value for json,
	// and a []byte for arraybuffer and blob.
	Data       any
	Status     int
	StatusText string
	Headers    headers.Map
	Config     *Config
	Request    transport.Handle
}

// Get queries a JSON body with a gjson path, e.g. "items.0.name".
func (r *Response) Get(path string) gjson.Result {
	switch d := r.Data.(type) {
	case string:
		return gjson.Get(d, path)
	case []byte:
		return gjson.GetBytes(d, path)
	case nil:
		return gjson.Result{}
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return gjson.Result{}
		}
		return gjson.GetBytes(b, path)
	}
}

func normalize(h transport.Handle, cfg *Config) *Response {
	var data any
	if cfg.ResponseType != "" && cfg.ResponseType != transport.ResponseTypeText {
		data = h.Response()
	} else {
		data = h.ResponseText()
	}

	return &Response{
		Data:       data,
		Status:     h.Status(),
		StatusText: h.StatusText(),
		Headers:    headers.Parse(h.AllResponseHeaders()),
		Config:     cfg,
		Request:    h,
	}
}
