package hub

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the websocket frame encoding for a client.
type Format int

const (
	FormatJSON Format = iota
	FormatMsgpack
)

func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "msgpack", "mp", "binary":
		return FormatMsgpack
	}
	return FormatJSON
}

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

func (f Format) messageType() int {
	if f == FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Envelope wraps every outbound frame, e.g. {"type":"sim","stream":"sim/gnss","data":{...}}.
type Envelope struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Data   any    `json:"data"`
}

// Command is an inbound client message.
type Command struct {
	Type string `json:"type"`
	DX   int    `json:"dx,omitempty"`
	DY   int    `json:"dy,omitempty"`
	Key  string `json:"key,omitempty"`
}

func encode(f Format, v any) ([]byte, error) {
	if f != FormatMsgpack {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeCommand accepts text frames as JSON and binary frames as msgpack.
func decodeCommand(messageType int, data []byte) (Command, error) {
	var cmd Command
	if messageType == websocket.BinaryMessage {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		err := dec.Decode(&cmd)
		return cmd, err
	}
	err := json.Unmarshal(data, &cmd)
	return cmd, err
}

// frames encodes a value at most once per format.
type frames struct {
	v     any
	cache [2][]byte
	errs  [2]error
	done  [2]bool
}

func (f *frames) get(format Format) ([]byte, error) {
	if !f.done[format] {
		f.cache[format], f.errs[format] = encode(format, f.v)
		f.done[format] = true
	}
	return f.cache[format], f.errs[format]
}
